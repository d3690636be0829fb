package core

import "time"

// Upstream timeouts
const (
	SubmitTimeout    = 120 * time.Second
	DiscoveryTimeout = 8 * time.Second
	HealthTimeout    = 3 * time.Second
)

// HTTP client config constants
const (
	HTTPMaxIdleConns          = 100
	HTTPMaxIdleConnsPerHost   = 20
	HTTPMaxConnsPerHost       = 50
	HTTPIdleConnTimeout       = 90 * time.Second
	HTTPTLSHandshakeTimeout   = 10 * time.Second
	HTTPExpectContinueTimeout = 5 * time.Second
)

// HTTP server constants
const (
	ServerReadHeaderTimeout = 10 * time.Second
	ServerReadTimeout       = 60 * time.Second
	ServerWriteTimeout      = 5 * time.Minute
	ServerShutdownTimeout   = 30 * time.Second
	MaxBodySize             = 50 << 20
	MaxMultipartMemory      = 32 << 20
)

// Stats and monitoring constants
const (
	MinSaveInterval   = 5 * time.Second
	HistoryBufferSize = 1000
	MetricsNamespace  = "sdfrontend"
)

// Image constants
const (
	MaxImageSizeBytes  = 20 * 1024 * 1024
	ImageFormatPNG     = "image/png"
	ImageFormatJPEG    = "image/jpeg"
	ImageFormatGIF     = "image/gif"
	ImageFormatWebP    = "image/webp"
	ImageFormatBMP     = "image/bmp"
	DataURIImagePrefix = "data:image"
)

// Response body size limits
const (
	MaxResponseBodySize = 64 * 1024 * 1024
	MaxErrorBodyLogSize = 2048
)

// SupportedImageFormats supported image format list
var SupportedImageFormats = []string{ImageFormatPNG, ImageFormatJPEG, ImageFormatGIF, ImageFormatWebP, ImageFormatBMP}

// Logging config constants
const (
	MaxDebugFilePathLength = 260
)

// File permission constants
const (
	FilePermissionReadWrite = 0644
)

// Time format constants
const (
	TimeFormatDateTime = "2006-01-02 15:04:05"
)
