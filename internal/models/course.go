package models

type Course struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Category    string `json:"category"`
	CreatedBy   string `json:"createdBy,omitempty"`
	Published   bool   `json:"published"`
}

// Status is the label shown next to a course.
func (c Course) Status() string {
	if c.Published {
		return "Published"
	}
	return "Draft"
}

type Module struct {
	ID          string `json:"id"`
	CourseID    string `json:"courseID"`
	Title       string `json:"title"`
	ContentType string `json:"contentType"` // "video", "pdf", etc.
	ContentURL  string `json:"contentURL"`
	OrderIndex  int    `json:"orderIndex"`
}
