package core

import (
	"testing"

	"github.com/bytedance/sonic"
)

func TestImg2ImgPayload_FlattensTxt2ImgFields(t *testing.T) {
	payload := Img2ImgPayload{
		Txt2ImgPayload: Txt2ImgPayload{
			Prompt:          "a photo",
			Styles:          []string{},
			Seed:            RandomSeed,
			Subseed:         RandomSeed,
			CFGScale:        DefaultCFGScale,
			SendImages:      true,
			AlwaysonScripts: map[string]any{},
		},
		InitImages: []string{"aGVsbG8="},
	}

	data, err := sonic.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	var decoded map[string]any
	if err := sonic.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}

	for _, key := range []string{"prompt", "seed", "cfg_scale", "send_images", "save_images", "init_images", "sd_model_checkpoint"} {
		if _, ok := decoded[key]; !ok {
			t.Errorf("payload missing top-level key %q: %s", key, data)
		}
	}
	if _, nested := decoded["Txt2ImgPayload"]; nested {
		t.Error("embedded payload must be flattened")
	}
}

func TestUpstreamResult_IsSuccess(t *testing.T) {
	tests := []struct {
		name   string
		result *UpstreamResult
		want   bool
	}{
		{"nil", nil, false},
		{"200", &UpstreamResult{StatusCode: 200}, true},
		{"204", &UpstreamResult{StatusCode: 204}, true},
		{"301", &UpstreamResult{StatusCode: 301}, false},
		{"500", &UpstreamResult{StatusCode: 500}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.result.IsSuccess(); got != tt.want {
				t.Errorf("IsSuccess() = %v, want %v", got, tt.want)
			}
		})
	}
}
