package comment

type AddCommentDTO struct {
	Text string `json:"text" validate:"max=4000"`
}

type CommentsResponse struct {
	Comments []*Comment `json:"comments"`
	Count    int        `json:"count"`
}
