package vo

// MediaInfo 媒体探测结果
type MediaInfo struct {
	// Duration is the probed input duration in seconds; 0 when unknown.
	Duration      float64 `json:"duration"`
	HasVideo      bool    `json:"has_video"`
	HasAudio      bool    `json:"has_audio"`
	SampleRate    int     `json:"sample_rate,omitempty"`
	Channels      int     `json:"channels,omitempty"`
	ChannelLayout string  `json:"channel_layout,omitempty"`
}
