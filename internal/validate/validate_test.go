package validate

import "testing"

type sample struct {
	Name  string `json:"name" validate:"required"`
	Grade int    `json:"grade" validate:"min=1,max=12"`
	Email string `json:"email" validate:"omitempty,email"`
	Role  string `json:"role" validate:"oneof=student parent"`
}

func TestStruct(t *testing.T) {
	tests := []struct {
		name    string
		in      sample
		wantErr string
	}{
		{"valid", sample{Name: "Asha", Grade: 5, Role: "student"}, ""},
		{"missing name", sample{Grade: 5, Role: "student"}, "name is required"},
		{"grade too high", sample{Name: "A", Grade: 13, Role: "parent"}, "grade must be at most 12"},
		{"bad email", sample{Name: "A", Grade: 1, Email: "nope", Role: "parent"}, "email must be a valid email address"},
		{"bad role", sample{Name: "A", Grade: 1, Role: "admin"}, "role must be one of: student parent"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Struct(tt.in)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || err.Error() != tt.wantErr {
				t.Fatalf("got %v, want %q", err, tt.wantErr)
			}
		})
	}
}
