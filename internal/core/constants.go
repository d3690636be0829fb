package core

// Default config constants
const (
	DefaultPort          = "5000"
	DefaultGinMode       = "release"
	DefaultUpstreamURL   = "http://127.0.0.1:7860"
	DefaultRateLimit     = 120
	DefaultStatsFilePath = "stats.json"
	CORSMaxAge           = "86400"
)

// Content type and header constants
const (
	ContentTypeJSON      = "application/json"
	ContentTypeMultipart = "multipart/form-data"
	HeaderContentType    = "Content-Type"
	HeaderAccept         = "Accept"
	HeaderRequestID      = "X-Request-ID"
)

// Generation modes, used as metric labels and in stats records
const (
	ModeTxt2Img = "txt2img"
	ModeImg2Img = "img2img"
)

// Form field names accepted by the generation endpoints
const (
	FormFieldPrompt         = "prompt"
	FormFieldNegativePrompt = "negative-prompt"
	FormFieldModel          = "model"
	FormFieldSampler        = "sampler"
	FormFieldWidth          = "width"
	FormFieldHeight         = "height"
	FormFieldSteps          = "steps"
)

// UploadFieldNames lists the multipart fields searched, in order, for the img2img source image.
var UploadFieldNames = []string{"image", "input-image", "input_image"}

// Generation defaults
const (
	Txt2ImgDefaultSize  = 256
	Txt2ImgDefaultSteps = 20
	Img2ImgDefaultSize  = 512
	Img2ImgDefaultSteps = 50
	DefaultSampler      = "Euler"
	DefaultCFGScale     = 7
	RandomSeed          = -1
)

// Response constants
const (
	CanonicalMIME         = "image/png"
	Txt2ImgSuccessMessage = "Image generated successfully!"
	Img2ImgSuccessMessage = "Image-to-image generation completed!"
)

// Error messages returned to the client
const (
	MsgUpstreamUnreachable = "no connection to generation API"
	MsgEmptyResult         = "no image generated"
	MsgMissingInputImage   = "no input image provided for img2img"
	MsgUnexpected          = "unexpected error"
	MsgNotFound            = "not found"
	MsgMethodNotAllowed    = "method not allowed"
	MsgBodyTooLarge        = "request body too large"
	MsgRateLimited         = "rate limit exceeded"
)
