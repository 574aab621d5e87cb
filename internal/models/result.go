package models

type RegisterRequest struct {
	FullName string `json:"full_name"`
	Email    string `json:"email"`
	Role     Role   `json:"role"`
}

type RegisterResponse struct {
	Profile  *Profile `json:"profile"`
	APIToken string   `json:"api_token"`
}

type CreateJobRequest struct {
	Title        string `json:"title"`
	Description  string `json:"description"`
	Requirements string `json:"requirements"`
}

type SubmitApplicationRequest struct {
	ResumeText  string `json:"resume_text" form:"resume_text"`
	CoverLetter string `json:"cover_letter" form:"cover_letter"`
}

type UpdateStatusRequest struct {
	Status ApplicationStatus `json:"status"`
}

type ApplicationResponse struct {
	*Application
	Review  *AIReview           `json:"review,omitempty"`
	Actions []ApplicationStatus `json:"actions"`
}

func NewApplicationResponse(app *Application) ApplicationResponse {
	review, _ := app.Review()
	return ApplicationResponse{
		Application: app,
		Review:      review,
		Actions:     app.Status.Transitions(),
	}
}

type BatchReviewItem struct {
	ApplicationID string    `json:"application_id"`
	Status        string    `json:"status"`
	Review        *AIReview `json:"review,omitempty"`
	Error         string    `json:"error,omitempty"`
}

type BatchReviewResponse struct {
	JobID     string            `json:"job_id"`
	Total     int               `json:"total"`
	Succeeded int               `json:"succeeded"`
	Failed    int               `json:"failed"`
	Results   []BatchReviewItem `json:"results"`
}

type SimilarCandidate struct {
	ApplicationID string  `json:"application_id"`
	Score         float32 `json:"score"`
	Excerpt       string  `json:"excerpt"`
}
