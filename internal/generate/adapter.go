package generate

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"sdfrontend/internal/core"
	"sdfrontend/internal/imaging"
	"sdfrontend/internal/util"
)

// AdapterConfig configuration for Adapter
type AdapterConfig struct {
	Upstream     core.UpstreamClient
	Capabilities core.CapabilityProvider
	Metrics      core.MetricsCollector
	Stats        core.StatsRecorder
	Logger       core.Logger
}

// Adapter turns submitted forms into upstream generation calls.
type Adapter struct {
	upstream core.UpstreamClient
	caps     core.CapabilityProvider
	metrics  core.MetricsCollector
	stats    core.StatsRecorder
	logger   core.Logger
}

// NewAdapter creates a request adapter
func NewAdapter(cfg AdapterConfig) *Adapter {
	a := &Adapter{
		upstream: cfg.Upstream,
		caps:     cfg.Capabilities,
		metrics:  cfg.Metrics,
		stats:    cfg.Stats,
		logger:   cfg.Logger,
	}
	if a.metrics == nil {
		a.metrics = &core.NopMetrics{}
	}
	if a.stats == nil {
		a.stats = &core.NopStats{}
	}
	if a.logger == nil {
		a.logger = &core.NopLogger{}
	}
	return a
}

// TextToImage resolves the form into a txt2img payload and returns the generated image.
func (a *Adapter) TextToImage(ctx context.Context, form url.Values) (*core.GenerationResponse, error) {
	start := time.Now()

	req, err := a.textRequest(ctx, form)
	if err != nil {
		a.observe(core.ModeTxt2Img, req.Model, start, err)
		return nil, err
	}

	resp, err := a.run(ctx, core.SDAPITxt2ImgPath, BuildTxt2ImgPayload(req), core.Txt2ImgSuccessMessage)
	a.observe(core.ModeTxt2Img, req.Model, start, err)
	return resp, err
}

// ImageToImage sends the uploaded image with the resolved form to img2img.
// A missing upload fails before any other field is looked at.
func (a *Adapter) ImageToImage(ctx context.Context, form url.Values, upload []byte) (*core.GenerationResponse, error) {
	start := time.Now()

	if len(upload) == 0 {
		err := core.ErrMissingInputImage()
		a.observe(core.ModeImg2Img, "", start, err)
		return nil, err
	}

	req, err := a.imageRequest(ctx, form, upload)
	if err != nil {
		a.observe(core.ModeImg2Img, req.Model, start, err)
		return nil, err
	}

	initImage, err := imaging.EncodeUpload(req.SourceImage)
	if err != nil {
		err = core.NewGenerationError(core.KindValidation, uploadErrorMessage(err), err)
		a.observe(core.ModeImg2Img, req.Model, start, err)
		return nil, err
	}
	a.logger.Debug("img2img source: %s, %d bytes", imaging.DetectMIME(req.SourceImage), len(req.SourceImage))

	resp, err := a.run(ctx, core.SDAPIImg2ImgPath, BuildImg2ImgPayload(req, initImage), core.Img2ImgSuccessMessage)
	a.observe(core.ModeImg2Img, req.Model, start, err)
	return resp, err
}

func uploadErrorMessage(err error) string {
	switch {
	case errors.Is(err, imaging.ErrUnsupportedFormat):
		return "unsupported input image format, expected one of " + strings.Join(core.SupportedImageFormats, ", ")
	case errors.Is(err, imaging.ErrImageTooLarge):
		return fmt.Sprintf("input image exceeds %d bytes", core.MaxImageSizeBytes)
	default:
		return "input image could not be read"
	}
}

func (a *Adapter) textRequest(ctx context.Context, form url.Values) (core.GenerationRequest, error) {
	req := core.GenerationRequest{
		Prompt:         form.Get(core.FormFieldPrompt),
		NegativePrompt: form.Get(core.FormFieldNegativePrompt),
	}

	var err error
	if req.Width, req.Height, req.Steps, err = dimensions(form, core.Txt2ImgDefaultSize, core.Txt2ImgDefaultSteps); err != nil {
		return req, err
	}

	req.Model = Resolve(
		FromForm(form, core.FormFieldModel),
		FirstOf(func() []string { return a.caps.AvailableModels(ctx) }),
		Literal(""),
	)
	req.Sampler = Resolve(
		FromForm(form, core.FormFieldSampler),
		FirstOf(func() []string { return a.caps.AvailableSamplers(ctx) }),
		Literal(core.DefaultSampler),
	)
	return req, nil
}

func (a *Adapter) imageRequest(ctx context.Context, form url.Values, upload []byte) (core.GenerationRequest, error) {
	req := core.GenerationRequest{
		Prompt:         form.Get(core.FormFieldPrompt),
		NegativePrompt: form.Get(core.FormFieldNegativePrompt),
		SourceImage:    upload,
	}

	var err error
	if req.Width, req.Height, req.Steps, err = dimensions(form, core.Img2ImgDefaultSize, core.Img2ImgDefaultSteps); err != nil {
		return req, err
	}

	req.Model = Resolve(
		FromForm(form, core.FormFieldModel),
		FirstOf(func() []string { return a.caps.AvailableModels(ctx) }),
		Literal(""),
	)
	// img2img never asks the upstream for samplers
	req.Sampler = Resolve(
		FromForm(form, core.FormFieldSampler),
		Literal(core.DefaultSampler),
	)
	return req, nil
}

// BuildTxt2ImgPayload projects a request onto the txt2img body.
func BuildTxt2ImgPayload(req core.GenerationRequest) core.Txt2ImgPayload {
	return core.Txt2ImgPayload{
		Prompt:            req.Prompt,
		NegativePrompt:    req.NegativePrompt,
		Styles:            []string{},
		Seed:              core.RandomSeed,
		Subseed:           core.RandomSeed,
		Width:             req.Width,
		Height:            req.Height,
		Steps:             req.Steps,
		SamplerIndex:      req.Sampler,
		CFGScale:          core.DefaultCFGScale,
		SendImages:        true,
		SaveImages:        false,
		AlwaysonScripts:   map[string]any{},
		SDModelCheckpoint: req.Model,
	}
}

// BuildImg2ImgPayload projects a request and its base64 PNG source onto the img2img body.
func BuildImg2ImgPayload(req core.GenerationRequest, initImage string) core.Img2ImgPayload {
	return core.Img2ImgPayload{
		Txt2ImgPayload: BuildTxt2ImgPayload(req),
		InitImages:     []string{initImage},
	}
}

func (a *Adapter) run(ctx context.Context, endpoint string, payload any, message string) (*core.GenerationResponse, error) {
	result, err := a.upstream.Submit(ctx, endpoint, payload)
	if err != nil {
		if errors.Is(err, core.ErrUpstreamUnreachable) {
			return nil, core.ErrUnreachable(err)
		}
		return nil, core.ErrUnhandled(err)
	}
	if !result.IsSuccess() {
		a.logger.Warn("%s returned %d: %s", endpoint, result.StatusCode, util.TruncateString(string(result.Body), core.MaxErrorBodyLogSize, 0, "..."))
		return nil, core.ErrUpstreamHTTP(result.StatusCode, result.Body)
	}

	var decoded core.SDGenerationResponse
	if err := util.UnmarshalJSON(result.Body, &decoded); err != nil {
		return nil, core.ErrUnhandled(fmt.Errorf("decode %s response: %w", endpoint, err))
	}
	if len(decoded.Images) == 0 || decoded.Images[0] == "" {
		return nil, core.ErrEmptyResult()
	}

	b64 := imaging.StripEnvelope(decoded.Images[0])
	canonical, err := imaging.Canonicalize(b64)
	if err != nil {
		a.logger.Debug("Returning %s image unnormalized: %v", endpoint, err)
		canonical = b64
	}

	return &core.GenerationResponse{
		Message:     message,
		ImageBase64: canonical,
		MIME:        core.CanonicalMIME,
	}, nil
}

func (a *Adapter) observe(mode, model string, start time.Time, err error) {
	elapsed := time.Since(start)
	a.metrics.RecordGeneration(mode, core.OutcomeOf(err), elapsed)
	a.stats.RecordRequest(err == nil, elapsed.Milliseconds(), model, mode)
	if err != nil {
		a.logger.Error("%s failed after %s: %v", mode, elapsed, err)
		return
	}
	a.logger.Info("%s completed in %s (model=%q)", mode, elapsed, model)
}
