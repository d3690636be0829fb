package core

// GenerationRequest is the resolved form input of one generation call.
// SourceImage is set only for img2img.
type GenerationRequest struct {
	Prompt         string
	NegativePrompt string
	Model          string
	Sampler        string
	Width          int
	Height         int
	Steps          int
	SourceImage    []byte
}

// Txt2ImgPayload is the JSON body of POST /sdapi/v1/txt2img.
type Txt2ImgPayload struct {
	Prompt            string         `json:"prompt"`
	NegativePrompt    string         `json:"negative_prompt"`
	Styles            []string       `json:"styles"`
	Seed              int64          `json:"seed"`
	Subseed           int64          `json:"subseed"`
	Width             int            `json:"width"`
	Height            int            `json:"height"`
	Steps             int            `json:"steps"`
	SamplerIndex      string         `json:"sampler_index"`
	CFGScale          float64        `json:"cfg_scale"`
	SendImages        bool           `json:"send_images"`
	SaveImages        bool           `json:"save_images"`
	AlwaysonScripts   map[string]any `json:"alwayson_scripts"`
	SDModelCheckpoint string         `json:"sd_model_checkpoint"`
}

// Img2ImgPayload is the JSON body of POST /sdapi/v1/img2img.
type Img2ImgPayload struct {
	Txt2ImgPayload
	InitImages []string `json:"init_images"`
}

// SDModel is one entry of GET /sdapi/v1/sd-models.
type SDModel struct {
	Title     string `json:"title"`
	ModelName string `json:"model_name"`
	Hash      string `json:"hash,omitempty"`
	Filename  string `json:"filename,omitempty"`
}

// SDSampler is one entry of GET /sdapi/v1/samplers.
type SDSampler struct {
	Name    string   `json:"name"`
	Aliases []string `json:"aliases,omitempty"`
}

// SDGenerationResponse is the body returned by txt2img and img2img.
type SDGenerationResponse struct {
	Images     []string       `json:"images"`
	Parameters map[string]any `json:"parameters,omitempty"`
	Info       string         `json:"info,omitempty"`
}

// UpstreamResult is a completed upstream HTTP exchange, whatever its status.
type UpstreamResult struct {
	StatusCode int
	Body       []byte
}

// IsSuccess reports whether the upstream answered with a 2xx status.
func (r *UpstreamResult) IsSuccess() bool {
	return r != nil && r.StatusCode >= 200 && r.StatusCode < 300
}

// GenerationResponse is the success envelope sent to the browser.
type GenerationResponse struct {
	Message     string `json:"message"`
	ImageBase64 string `json:"image_base64"`
	MIME        string `json:"mime"`
}

// ErrorResponse is the failure envelope sent to the browser.
type ErrorResponse struct {
	Error string `json:"error"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	OK bool `json:"ok"`
}
