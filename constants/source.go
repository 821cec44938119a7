package constants

import "strings"

// SourceKind says where the text handed to the pipeline came from.
type SourceKind string

const (
	SourceImage  SourceKind = "image"  // uploaded photo or scan
	SourceCamera SourceKind = "camera" // live capture from the device camera
	SourceVoice  SourceKind = "voice"  // speech-to-text transcript
)

// Minimum OCR text lengths below which a capture is considered unreadable.
const (
	MinCameraTextLength = 10
	MinImageTextLength  = 20
)

// ParseSourceKind accepts the wire spelling of a source kind.
func ParseSourceKind(s string) (SourceKind, bool) {
	switch SourceKind(strings.ToLower(strings.TrimSpace(s))) {
	case SourceImage:
		return SourceImage, true
	case SourceCamera:
		return SourceCamera, true
	case SourceVoice:
		return SourceVoice, true
	}
	return "", false
}

// MinTextLength returns the OCR length threshold for a source kind.
func (k SourceKind) MinTextLength() int {
	switch k {
	case SourceCamera:
		return MinCameraTextLength
	case SourceVoice:
		return 1
	default:
		return MinImageTextLength
	}
}
