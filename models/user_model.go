package models

type User struct {
	ID            string   `json:"id" bson:"_id,omitempty"`
	Username      string   `json:"username" bson:"username"`
	Password      string   `json:"-" bson:"password"` // bcrypt hash, never serialized
	FavoriteGenre string   `json:"favoriteGenre,omitempty" bson:"favorite_genre,omitempty"`
	FriendIDs     []string `json:"-" bson:"friends"`
	RequestIDs    []string `json:"-" bson:"friend_requests"`

	// Populated views of FriendIDs/RequestIDs, filled by the service layer.
	Friends        []*User `json:"friends" bson:"-"`
	FriendRequests []*User `json:"friend_requests" bson:"-"`
}

// Token is the login response: a signed credential plus the identity it
// encodes. The credential itself carries only username and id.
type Token struct {
	Username string `json:"username"`
	ID       string `json:"id"`
	Value    string `json:"value"`
}

// HasFriend reports whether id is already in the user's friends set.
func (u *User) HasFriend(id string) bool {
	for _, f := range u.FriendIDs {
		if f == id {
			return true
		}
	}
	return false
}

// HasRequestFrom reports whether id has a pending request in the user's inbox.
func (u *User) HasRequestFrom(id string) bool {
	for _, r := range u.RequestIDs {
		if r == id {
			return true
		}
	}
	return false
}
