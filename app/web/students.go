package web

import (
	"context"
	"sort"
	"strings"

	log "github.com/go-pkgz/lgr"

	"github.com/tepuyroraima/roster/app/roster"
	"github.com/tepuyroraima/roster/app/web/enums"
)

// rosterView is the filtered and sorted roster with stats
type rosterView struct {
	students   []roster.Student
	totalCount int
	failed     bool
}

// loadRoster lists students, applies search and sort mode. A store failure is logged
// and results in an empty view marked as failed.
func (s *Server) loadRoster(ctx context.Context, search string, mode enums.SortMode) rosterView {
	all, err := s.store.List(ctx)
	if err != nil {
		log.Printf("[ERROR] failed to load students: %v", err)
		return rosterView{students: []roster.Student{}, failed: true}
	}

	students := roster.Filter(all, strings.TrimSpace(search))
	sortStudents(students, mode)
	return rosterView{students: students, totalCount: len(all)}
}

// sortStudents sorts students in place. Default keeps the store order.
func sortStudents(students []roster.Student, mode enums.SortMode) {
	switch mode {
	case enums.SortModeName:
		sort.SliceStable(students, func(i, j int) bool {
			ai, aj := strings.ToLower(students[i].Apellido), strings.ToLower(students[j].Apellido)
			if ai != aj {
				return ai < aj
			}
			return strings.ToLower(students[i].Nombre) < strings.ToLower(students[j].Nombre)
		})
	case enums.SortModeEnrolled:
		sort.SliceStable(students, func(i, j int) bool {
			return students[i].FechaInscripcion.After(students[j].FechaInscripcion)
		})
	}
}
