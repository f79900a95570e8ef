package api

import "time"

// User is a profile as returned by the backend
type User struct {
	ID         string    `json:"_id"`
	Username   string    `json:"username"`
	Fullname   string    `json:"fullname"`
	Email      string    `json:"email,omitempty"`
	Bio        string    `json:"bio,omitempty"`
	Link       string    `json:"link,omitempty"`
	Followers  []string  `json:"followers"`
	Following  []string  `json:"following"`
	ProfileImg string    `json:"profileImg,omitempty"`
	CoverImg   string    `json:"coverImg,omitempty"`
	LikedPosts []string  `json:"likedPosts,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

// IsFollowing reports whether u follows the user with the given id
func (u *User) IsFollowing(id string) bool {
	if u == nil {
		return false
	}
	for _, f := range u.Following {
		if f == id {
			return true
		}
	}
	return false
}

// AuthUser is the session identity payload of /auth/me
type AuthUser struct {
	User User `json:"user"`
}

// Comment is one entry of a post's comment list
type Comment struct {
	ID   string `json:"_id,omitempty"`
	Text string `json:"text"`
	User User   `json:"user"`
}

// Post is a feed item
type Post struct {
	ID        string    `json:"_id"`
	User      User      `json:"user"`
	Text      string    `json:"text"`
	Img       string    `json:"img,omitempty"`
	Liked     []string  `json:"liked"`
	Comments  []Comment `json:"comment"`
	CreatedAt time.Time `json:"createdAt"`
}

// LikedBy reports whether userID is in the post's liker list
func (p *Post) LikedBy(userID string) bool {
	if p == nil || userID == "" {
		return false
	}
	for _, id := range p.Liked {
		if id == userID {
			return true
		}
	}
	return false
}

// Notification is a follow/like notice addressed to the session user
type Notification struct {
	ID        string    `json:"_id"`
	From      User      `json:"from"`
	To        string    `json:"to"`
	Type      string    `json:"type"` // follow, like
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"createdAt"`
}

// LoginRequest is the body of POST /auth/login
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// SignupRequest is the body of POST /auth/signup
type SignupRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Fullname string `json:"fullname"`
	Password string `json:"password"`
}

// CreatePostRequest is the body of POST /posts/create
type CreatePostRequest struct {
	Text string `json:"text"`
	Img  string `json:"img,omitempty"`
}

// CommentRequest is the body of POST /posts/comment/:id
type CommentRequest struct {
	Text string `json:"text"`
}

// UpdateProfileRequest is the body of POST /users/update/:id.
// Empty fields are omitted so the backend keeps the current value.
type UpdateProfileRequest struct {
	Fullname        string `json:"fullname,omitempty"`
	Username        string `json:"username,omitempty"`
	Email           string `json:"email,omitempty"`
	Bio             string `json:"bio,omitempty"`
	Link            string `json:"link,omitempty"`
	CurrentPassword string `json:"currentPassword,omitempty"`
	NewPassword     string `json:"newPassword,omitempty"`
	ProfileImg      string `json:"profileImg,omitempty"`
	CoverImg        string `json:"coverImg,omitempty"`
}

// IsEmpty reports whether the request carries no changes
func (r UpdateProfileRequest) IsEmpty() bool {
	return r == UpdateProfileRequest{}
}

// ErrorResponse is the backend's error body
type ErrorResponse struct {
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}

// MessageResponse is returned by mutations that only acknowledge
type MessageResponse struct {
	Message string `json:"message"`
}
