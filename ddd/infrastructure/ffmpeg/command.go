package ffmpeg

import (
	"fmt"
	"strconv"
	"strings"

	"slowdown-service/ddd/domain/entity"
	"slowdown-service/pkg/config"
	"slowdown-service/pkg/logger"
)

// SlowdownResolver builds the ffmpeg argv that slows 2x media back to 1x:
// video through setpts=2*PTS, audio through rubberband (formant preserved)
// when the ffmpeg build has it, else atempo=0.5.
type SlowdownResolver struct {
	ffmpegPath     string
	encoding       config.EncodingConfig
	previewSeconds int
	useRubberband  bool
}

// NewSlowdownResolver decides the rubberband capability once, at
// construction.
func NewSlowdownResolver(ffmpegPath string, cfg *config.Config) *SlowdownResolver {
	r := &SlowdownResolver{
		ffmpegPath:     ffmpegPath,
		encoding:       cfg.Transcode.Encoding,
		previewSeconds: cfg.Transcode.Preview.Seconds,
	}
	switch strings.ToLower(cfg.Transcode.FFmpeg.Rubberband) {
	case "on":
		r.useRubberband = true
	case "off":
		r.useRubberband = false
	default:
		r.useRubberband = DetectRubberband(ffmpegPath)
		logger.Infof("Rubberband filter detection result=%v ffmpeg=%s", r.useRubberband, ffmpegPath)
	}
	return r
}

// Resolve builds the command for one probed job. The returned output
// duration is twice the probed input duration (slowing 2x -> 1x doubles the
// timeline), floored at 0.01 to keep progress math defined.
func (r *SlowdownResolver) Resolve(job *entity.Job) ([]string, float64, error) {
	media := job.Media()
	if !media.HasVideo && !media.HasAudio {
		return nil, 0, fmt.Errorf("input has neither audio nor video streams: %s", job.InputPath())
	}

	var filters []string
	var maps []string

	if media.HasVideo {
		filters = append(filters, "[0:v]setpts=2*PTS[v]")
		maps = append(maps, "-map", "[v]")
	}
	if media.HasAudio {
		if r.useRubberband {
			// Preserve formants for natural voice
			filters = append(filters, "[0:a]rubberband=tempo=0.5:formant=preserved[a]")
		} else {
			filters = append(filters, "[0:a]atempo=0.5[a]")
		}
		maps = append(maps, "-map", "[a]")
	}

	argv := []string{
		r.ffmpegPath,
		"-y",
		"-hide_banner",
		"-i", job.InputPath(),
	}

	// Preview: a centered window of the input for quick A/B checks.
	inputDuration := media.Duration
	if job.Preview() && media.Duration > 0 && r.previewSeconds > 0 {
		start := media.Duration/2.0 - float64(r.previewSeconds)/2.0
		if start < 0 {
			start = 0
		}
		argv = append(argv, "-ss", fmt.Sprintf("%.3f", start), "-t", strconv.Itoa(r.previewSeconds))
		if inputDuration > float64(r.previewSeconds) {
			inputDuration = float64(r.previewSeconds)
		}
	}

	argv = append(argv, "-filter_complex", strings.Join(filters, ";"))
	argv = append(argv, maps...)

	if r.encoding.CopySubtitles && media.HasVideo {
		argv = append(argv, "-map", "0:s?")
	}

	if media.HasVideo {
		argv = append(argv,
			"-c:v", r.encoding.VideoEncoder,
			"-preset", r.encoding.VideoPreset,
			"-crf", strconv.Itoa(r.encoding.VideoCRF),
		)
	}
	if media.HasAudio {
		argv = append(argv,
			"-c:a", r.encoding.AudioCodec,
			"-b:a", fmt.Sprintf("%dk", r.encoding.AudioBitrate),
		)
	}
	if r.encoding.CopySubtitles && media.HasVideo {
		argv = append(argv, "-c:s", "copy")
	}

	argv = append(argv,
		"-map_metadata", "0",
		"-map_chapters", "0",
		"-movflags", "+faststart",
		job.OutputPath(),
	)

	outputDuration := inputDuration * 2.0
	if outputDuration < 0.01 {
		outputDuration = 0.01
	}
	return argv, outputDuration, nil
}
