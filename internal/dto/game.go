package dto

import (
	"github.com/wanxtv/wanx/backend/internal/models"
)

type GameResponse struct {
	ID    string `json:"game_id"`
	Name  string `json:"name"`
	Bid   string `json:"bid"`
	URL   string `json:"url"`
	Icon  string `json:"icon"`
	Cover string `json:"cover"`
	Intro string `json:"intro"`

	Subscribed *bool `json:"subscribed,omitempty"`
}

func ToGameResponse(g *models.Game) *GameResponse {
	if g == nil {
		return nil
	}
	return &GameResponse{
		ID:    g.ID,
		Name:  g.Name,
		Bid:   g.Bid,
		URL:   g.URL,
		Icon:  g.Icon,
		Cover: g.Cover,
		Intro: g.Intro,
	}
}

// ToGameResponses converts games, skipping nils. The result is never nil.
func ToGameResponses(games []*models.Game) []*GameResponse {
	out := make([]*GameResponse, 0, len(games))
	for _, g := range games {
		if g != nil {
			out = append(out, ToGameResponse(g))
		}
	}
	return out
}

// TagResponse is a game tag with its games, as shown on the Migu home page.
type TagResponse struct {
	ID    string          `json:"tag_id"`
	Name  string          `json:"name"`
	Games []*GameResponse `json:"games"`
}

// SubscriptionResponse is one subscribed game and its newest videos.
type SubscriptionResponse struct {
	Game   *GameResponse    `json:"game"`
	Videos []*VideoResponse `json:"videos"`
}
