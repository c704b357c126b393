package model

// ========== Bungie.net API 响应结构 ==========

// BungieEnvelope 所有 Bungie 接口的统一外层
type BungieEnvelope[T any] struct {
	Response    T      `json:"Response"`
	ErrorCode   int    `json:"ErrorCode"`
	ErrorStatus string `json:"ErrorStatus"`
	Message     string `json:"Message"`
}

// BungieUserInfo 游戏账号基础信息
type BungieUserInfo struct {
	MembershipType int    `json:"membershipType"`
	MembershipID   string `json:"membershipId"`
	DisplayName    string `json:"displayName"`
}

// BungieLinkedProfiles GET /Destiny2/{type}/Profile/{id}/LinkedProfiles/
type BungieLinkedProfiles struct {
	Profiles       []BungieUserInfo `json:"profiles"`
	BnetMembership *struct {
		MembershipID string `json:"membershipId"` // Bungie.net 账号，作为跨存档分组
	} `json:"bnetMembership"`
}

// BungieProfile GET /Destiny2/{type}/Profile/{id}/?components=100
type BungieProfile struct {
	Profile struct {
		Data struct {
			CharacterIDs []string `json:"characterIds"`
		} `json:"data"`
	} `json:"profile"`
}

// BungieActivityHistory GET /Destiny2/{type}/Account/{id}/Character/{cid}/Stats/Activities/
type BungieActivityHistory struct {
	Activities []struct {
		Period          string `json:"period"`
		ActivityDetails struct {
			InstanceID           string `json:"instanceId"`
			DirectorActivityHash uint32 `json:"directorActivityHash"`
		} `json:"activityDetails"`
	} `json:"activities"`
}

// BungieStatValue 统计值通用结构
type BungieStatValue struct {
	Basic struct {
		Value float64 `json:"value"`
	} `json:"basic"`
}

// BungiePGCR GET /Destiny2/Stats/PostGameCarnageReport/{instanceId}/
type BungiePGCR struct {
	Period          string `json:"period"`
	ActivityDetails struct {
		InstanceID           string `json:"instanceId"`
		DirectorActivityHash uint32 `json:"directorActivityHash"`
	} `json:"activityDetails"`
	Entries []struct {
		Player struct {
			DestinyUserInfo BungieUserInfo `json:"destinyUserInfo"`
		} `json:"player"`
		CharacterID string                     `json:"characterId"`
		Values      map[string]BungieStatValue `json:"values"` // team/startSeconds/timePlayedSeconds/activityDurationSeconds
	} `json:"entries"`
}

// BungiePartnership GET /User/{bnetId}/Partnerships/
type BungiePartnership struct {
	PartnerType int    `json:"partnerType"` // 1 = Twitch
	Identifier  string `json:"identifier"`  // Twitch 用户ID
	Name        string `json:"name"`
}
