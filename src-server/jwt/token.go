package jwt

// Claims handed over by the identity side: who the caller is and which
// role they held when the token was minted. The role is re-read from
// storage on every request, the claim only locates the account.
type Payload struct {
	UserID   string `json:"id"`
	Role     string `json:"role"`
	IssuedAt int64  `json:"iat"`
}
