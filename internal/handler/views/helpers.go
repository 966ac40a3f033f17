package views

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/pavelanni/vidya/internal/exam"
	appI18n "github.com/pavelanni/vidya/internal/i18n"
	"github.com/pavelanni/vidya/internal/model"
)

func tr(ctx context.Context, id string) string {
	return appI18n.T(ctx, id)
}

// trData translates id with alternating key/value template data.
func trData(ctx context.Context, id string, kv ...any) string {
	data := make(map[string]any, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		data[fmt.Sprint(kv[i])] = kv[i+1]
	}
	return appI18n.Td(ctx, id, data)
}

func trCount(ctx context.Context, id string, n int) string {
	return appI18n.Tp(ctx, id, n)
}

// path prefixes an application path with the deployment base path.
func path(ctx context.Context, p string) string {
	return model.BasePathFromContext(ctx) + p
}

func csrfToken(ctx context.Context) string {
	return model.CSRFTokenFromContext(ctx)
}

func roleLabel(ctx context.Context, r model.ProfileRole) string {
	return appI18n.T(ctx, "Role_"+string(r))
}

func formatTime(t time.Time) string {
	return t.Format("02 Jan 2006 15:04")
}

func scoreLabel(ctx context.Context, p *int) string {
	if p == nil {
		return appI18n.T(ctx, "NotEvaluated")
	}
	return strconv.Itoa(*p) + "%"
}

func itoa(n int) string {
	return strconv.Itoa(n)
}

func idString(id int64) string {
	return strconv.FormatInt(id, 10)
}

// numberValue leaves unset numeric inputs empty.
func numberValue(n int) string {
	if n == 0 {
		return ""
	}
	return strconv.Itoa(n)
}

func difficultyMix(ctx context.Context, p *exam.Paper) string {
	c := p.CountBy()
	return trData(ctx, "DifficultyMix",
		"Easy", c[exam.DifficultyEasy],
		"Medium", c[exam.DifficultyMedium],
		"Hard", c[exam.DifficultyHard])
}

func isSelected(sel *model.Profile, p model.Profile) bool {
	return sel != nil && sel.ID == p.ID
}
