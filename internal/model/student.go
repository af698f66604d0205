package model

import "time"

// Student represents a student user.
type Student struct {
	ID           int       `json:"id" db:"id"`
	NISN         string    `json:"nisn" db:"nisn"`
	Name         string    `json:"name" db:"name"`
	School       string    `json:"school" db:"school"`
	PasswordHash string    `json:"-" db:"password_hash"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// StudentIdentity is the authenticated student a session belongs to.
type StudentIdentity struct {
	ID     int    `json:"id"`
	Name   string `json:"name"`
	School string `json:"school"`
}

// Identity returns the session-facing view of the student.
func (s *Student) Identity() StudentIdentity {
	return StudentIdentity{ID: s.ID, Name: s.Name, School: s.School}
}

// StudentLoginRequest is the payload for student authentication.
type StudentLoginRequest struct {
	NISN     string `json:"nisn" binding:"required,min=4,max=20"`
	Password string `json:"password" binding:"required,min=4,max=128"`
}

// StudentLoginResponse is returned after successful student login.
type StudentLoginResponse struct {
	Token   string  `json:"token"`
	Student Student `json:"student"`
}
