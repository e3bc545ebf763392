package dto

import (
	"github.com/wanxtv/wanx/backend/internal/models"
)

type ReplyResponse struct {
	ID       string        `json:"reply_id"`
	Comment  string        `json:"comment_id"`
	Content  string        `json:"content"`
	CreateAt float64       `json:"create_at"`
	Owner    *UserResponse `json:"owner"`
}

type CommentResponse struct {
	ID       string        `json:"comment_id"`
	Video    string        `json:"video_id"`
	Content  string        `json:"content"`
	Reply    int           `json:"reply"`
	Like     int           `json:"like"`
	CreateAt float64       `json:"create_at"`
	Author   *UserResponse `json:"author"`

	// Only filled by feeds that inline the newest replies.
	Replies []*ReplyResponse `json:"replies,omitempty"`
}

func ToCommentResponse(c *models.Comment, authors map[string]*models.User) *CommentResponse {
	if c == nil {
		return nil
	}
	return &CommentResponse{
		ID:       c.ID,
		Video:    c.Video,
		Content:  c.Content,
		Reply:    c.ReplyCount,
		Like:     c.Like,
		CreateAt: c.CreateAt,
		Author:   ToUserResponse(authors[c.Author]),
	}
}

func ToCommentResponses(comments []*models.Comment, authors map[string]*models.User) []*CommentResponse {
	out := make([]*CommentResponse, 0, len(comments))
	for _, c := range comments {
		out = append(out, ToCommentResponse(c, authors))
	}
	return out
}

func ToReplyResponses(replies []*models.Reply, owners map[string]*models.User) []*ReplyResponse {
	out := make([]*ReplyResponse, 0, len(replies))
	for _, r := range replies {
		out = append(out, &ReplyResponse{
			ID:       r.ID,
			Comment:  r.Comment,
			Content:  r.Content,
			CreateAt: r.CreateAt,
			Owner:    ToUserResponse(owners[r.Owner]),
		})
	}
	return out
}
