package ffmpeg

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"

	"slowdown-service/ddd/domain/vo"
)

// Prober implements port.Prober on top of the ffprobe binary.
type Prober struct {
	ffprobePath string
}

// NewProber creates a prober bound to a resolved ffprobe binary.
func NewProber(ffprobePath string) *Prober {
	return &Prober{ffprobePath: ffprobePath}
}

type probeFormat struct {
	Duration string `json:"duration"`
}

type probeStream struct {
	CodecType     string `json:"codec_type"`
	SampleRate    string `json:"sample_rate"`
	Channels      int    `json:"channels"`
	ChannelLayout string `json:"channel_layout"`
}

type probeOutput struct {
	Format  probeFormat   `json:"format"`
	Streams []probeStream `json:"streams"`
}

// Probe runs ffprobe and extracts duration and stream-presence facts.
func (p *Prober) Probe(ctx context.Context, path string) (vo.MediaInfo, error) {
	cmd := exec.CommandContext(ctx, p.ffprobePath,
		"-v", "error",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		path,
	)
	out, err := cmd.Output()
	if err != nil {
		return vo.MediaInfo{}, fmt.Errorf("ffprobe %s: %w", path, err)
	}

	var parsed probeOutput
	if err := json.Unmarshal(out, &parsed); err != nil {
		return vo.MediaInfo{}, fmt.Errorf("ffprobe output for %s: %w", path, err)
	}

	info := vo.MediaInfo{}
	if parsed.Format.Duration != "" {
		if d, err := strconv.ParseFloat(parsed.Format.Duration, 64); err == nil {
			info.Duration = d
		}
	}
	for _, s := range parsed.Streams {
		switch s.CodecType {
		case "video":
			info.HasVideo = true
		case "audio":
			info.HasAudio = true
			if sr, err := strconv.Atoi(s.SampleRate); err == nil {
				info.SampleRate = sr
			}
			info.Channels = s.Channels
			info.ChannelLayout = s.ChannelLayout
		}
	}
	return info, nil
}
