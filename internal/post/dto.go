package post

type PostResponse struct {
	ID       int64  `json:"post_id"`
	PostCode string `json:"post_code"`
	PostName string `json:"post_name"`
}

type PostsResponse struct {
	Posts []PostResponse `json:"posts"`
}
