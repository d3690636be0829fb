package core

// Stable Diffusion WebUI API endpoint paths
const (
	SDAPISamplersPath = "/sdapi/v1/samplers"
	SDAPIModelsPath   = "/sdapi/v1/sd-models"
	SDAPITxt2ImgPath  = "/sdapi/v1/txt2img"
	SDAPIImg2ImgPath  = "/sdapi/v1/img2img"
)
