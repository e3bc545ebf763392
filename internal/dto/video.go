package dto

import (
	"github.com/wanxtv/wanx/backend/internal/models"
)

// VideoResponse is a video with its author and game inlined.
type VideoResponse struct {
	ID           string        `json:"video_id"`
	Title        string        `json:"title"`
	Duration     int           `json:"duration"`
	Ratio        string        `json:"ratio"`
	Cover        string        `json:"cover"`
	URL          string        `json:"url"`
	Status       string        `json:"status"`
	Vv           int64         `json:"vv"`
	Like         int64         `json:"like"`
	CommentCount int64         `json:"comment_count"`
	EventID      *string       `json:"event_id"`
	IsElite      bool          `json:"is_elite"`
	ReleaseTime  float64       `json:"release_time"`
	CreateAt     float64       `json:"create_at"`
	Author       *UserResponse `json:"author"`
	Game         *GameResponse `json:"game"`

	IsFavored *bool `json:"is_favored,omitempty"`
	IsLiked   *bool `json:"is_liked,omitempty"`
}

// VideoRefs carries the objects a batch of videos points at. Missing entries
// render as null.
type VideoRefs struct {
	Authors map[string]*models.User
	Games   map[string]*models.Game
	// Favored and Liked are only consulted when non-nil.
	Favored map[string]bool
	Liked   map[string]bool
}

// ToVideoResponse converts one video.
func ToVideoResponse(v *models.Video, refs VideoRefs) *VideoResponse {
	if v == nil {
		return nil
	}
	resp := &VideoResponse{
		ID:           v.ID,
		Title:        v.Title,
		Duration:     v.Duration,
		Ratio:        v.Ratio,
		Cover:        v.Cover,
		URL:          v.URL,
		Status:       v.Status,
		Vv:           v.Vv,
		Like:         v.LikeCount,
		CommentCount: v.CommentCount,
		IsElite:      v.IsElite,
		ReleaseTime:  v.ReleaseTime,
		CreateAt:     v.CreateAt,
		Author:       ToUserResponse(refs.Authors[v.Author]),
		Game:         ToGameResponse(refs.Games[v.Game]),
	}
	if v.EventID != "" {
		eventID := v.EventID
		resp.EventID = &eventID
	}
	if refs.Favored != nil {
		favored := refs.Favored[v.ID]
		resp.IsFavored = &favored
	}
	if refs.Liked != nil {
		liked := refs.Liked[v.ID]
		resp.IsLiked = &liked
	}
	return resp
}

// ToVideoResponses converts a batch, keeping order. The result is never nil.
func ToVideoResponses(videos []*models.Video, refs VideoRefs) []*VideoResponse {
	out := make([]*VideoResponse, 0, len(videos))
	for _, v := range videos {
		out = append(out, ToVideoResponse(v, refs))
	}
	return out
}

// VideoCategoryResponse is an editorial category with its video count for a game.
type VideoCategoryResponse struct {
	ID         string `json:"category_id"`
	Name       string `json:"name"`
	Icon       string `json:"icon"`
	VideoCount int64  `json:"video_count"`
}

func ToVideoCategoryResponse(c *models.VideoCategory, count int64) *VideoCategoryResponse {
	return &VideoCategoryResponse{ID: c.ID, Name: c.Name, Icon: c.Icon, VideoCount: count}
}

// TopicResponse is an editorial topic.
type TopicResponse struct {
	ID          string `json:"topic_id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Cover       string `json:"cover"`
	VideoCount  int64  `json:"video_count"`
}

func ToTopicResponse(t *models.VideoTopic, count int64) *TopicResponse {
	return &TopicResponse{
		ID:          t.ID,
		Name:        t.Name,
		Description: t.Description,
		Cover:       t.Cover,
		VideoCount:  count,
	}
}
