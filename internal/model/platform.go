package model

// ProviderType 视频平台类型枚举
type ProviderType string

const (
	ProviderTwitch  ProviderType = "twitch"
	ProviderYouTube ProviderType = "youtube"
	ProviderMixer   ProviderType = "mixer"
)

// Valid 是否为已支持的视频平台
func (p ProviderType) Valid() bool {
	switch p {
	case ProviderTwitch, ProviderYouTube, ProviderMixer:
		return true
	}
	return false
}

// RawClip 所有视频平台的原始录像通用结构
type RawClip struct {
	Provider       ProviderType // 来源平台
	ID             string       // 平台原生录像ID
	VideoAccountID string       // 所属视频账号（provider:externalId）
	Data           interface{}  // 平台原生数据（TwitchVideo/YouTubeVideo/MixerRecording）
}
