package dto

// ClassRequest defines payload for creating or updating a class group.
type ClassRequest struct {
	Name        string  `json:"name" validate:"required,max=100"`
	Description string  `json:"description" validate:"max=500"`
	TeacherID   *string `json:"teacher_id,omitempty" validate:"omitempty,uuid"`
}
