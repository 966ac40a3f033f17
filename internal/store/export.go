package store

import (
	"errors"
	"fmt"

	"github.com/pavelanni/vidya/internal/model"
)

// ExportProgress builds export-ready progress for every student.
func (s *Store) ExportProgress() (model.ProgressExport, error) {
	out := model.ProgressExport{GeneratedAt: s.now().UTC(), Students: []model.StudentProgress{}}

	students, err := s.ListProfilesByRole(model.RoleStudent)
	if err != nil {
		return out, fmt.Errorf("list students: %w", err)
	}

	schools := make(map[int64]string)
	groups := make(map[int64]string)

	for _, st := range students {
		sp := model.StudentProgress{ProfileID: st.ID, Name: st.Name, Email: st.Email}

		if st.SchoolID != nil {
			name, ok := schools[*st.SchoolID]
			if !ok {
				sc, err := s.GetSchool(*st.SchoolID)
				if err != nil && !errors.Is(err, ErrNotFound) {
					return out, fmt.Errorf("get school %d: %w", *st.SchoolID, err)
				}
				name = sc.Name
				schools[*st.SchoolID] = name
			}
			sp.School = name
		}
		if st.GroupID != nil {
			name, ok := groups[*st.GroupID]
			if !ok {
				g, err := s.GetGroup(*st.GroupID)
				if err != nil && !errors.Is(err, ErrNotFound) {
					return out, fmt.Errorf("get group %d: %w", *st.GroupID, err)
				}
				name = g.Name
				groups[*st.GroupID] = name
			}
			sp.Group = name
		}

		if sp.Sessions, err = s.ListStudentProgress(st.ID); err != nil {
			return out, fmt.Errorf("progress of %d: %w", st.ID, err)
		}
		if sp.Sessions == nil {
			sp.Sessions = []model.TutoringSession{}
		}
		if sp.Weekly, err = s.WeeklyProgressSummary(st.ID); err != nil {
			return out, err
		}
		out.Students = append(out.Students, sp)
	}
	return out, nil
}
