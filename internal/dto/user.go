package dto

import (
	"github.com/wanxtv/wanx/backend/internal/models"
)

// UserResponse is the public user representation (safe for API responses)
type UserResponse struct {
	ID            string  `json:"user_id"`
	Name          string  `json:"name"`
	Nickname      string  `json:"nickname"`
	Gender        int     `json:"gender"`
	Photo         string  `json:"photo"`
	VideoCount    int     `json:"video_count"`
	FollowerCount int     `json:"follower_count"`
	CreateAt      float64 `json:"create_at"`

	// Only set when requested by an authenticated user
	IsFollowed *bool `json:"is_followed,omitempty"`
}

// UserDetailResponse includes private info for the user viewing their own profile
type UserDetailResponse struct {
	UserResponse
	Phone    string `json:"phone"`
	Province string `json:"province,omitempty"`
}

// ToUserResponse converts models.User to UserResponse (excludes phone and partner ids)
func ToUserResponse(user *models.User) *UserResponse {
	if user == nil {
		return nil
	}

	return &UserResponse{
		ID:            user.ID,
		Name:          user.Name,
		Nickname:      user.Nickname,
		Gender:        user.Gender,
		Photo:         user.Photo,
		VideoCount:    user.VideoCount,
		FollowerCount: user.FollowerCount,
		CreateAt:      user.CreateAt,
	}
}

// ToUserDetailResponse converts models.User to UserDetailResponse (includes private fields)
func ToUserDetailResponse(user *models.User) *UserDetailResponse {
	if user == nil {
		return nil
	}

	return &UserDetailResponse{
		UserResponse: *ToUserResponse(user),
		Phone:        user.Phone,
		Province:     user.Province,
	}
}
