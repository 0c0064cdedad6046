package notification

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/fcl-miniapp/internal/domain"
)

const (
	placeholder   = "—"
	starterSlots  = 5
	tagStarter    = "основной"
	tagSubstitute = "запасной"
)

var (
	fullNameKeys = []string{"full_name", "name"}
	nicknameKeys = []string{"nickname", "nick"}
	contactKeys  = []string{"contact", "telegram"}
)

// BuildMessage renders the confirmation text for a committed registration.
// Output depends only on reg, so the same registration always yields the same text.
func BuildMessage(reg *domain.Registration) string {
	var b strings.Builder
	b.WriteString("Заявка на турнир FCL принята!\n")
	fmt.Fprintf(&b, "Дисциплина: %s\n", orPlaceholder(reg.Discipline.String()))
	fmt.Fprintf(&b, "Формат: %s\n", modeLabel(reg.Mode))

	switch reg.Mode {
	case domain.ModeTeam:
		writeRoster(&b, reg.Data)
	case domain.ModeIndividual:
		writeIndividual(&b, reg.Data)
	case domain.ModeUnset:
	}
	return strings.TrimRight(b.String(), "\n")
}

func modeLabel(m domain.Mode) string {
	switch m {
	case domain.ModeTeam:
		return "командный"
	case domain.ModeIndividual:
		return "индивидуальный"
	case domain.ModeUnset:
	}
	return placeholder
}

func writeRoster(b *strings.Builder, data map[string]any) {
	players, _ := data["team_players"].([]any)
	b.WriteString("\nСостав:\n")
	if len(players) == 0 {
		b.WriteString(placeholder + "\n")
		return
	}
	for i, p := range players {
		player, _ := p.(map[string]any)
		tag := tagStarter
		if i >= starterSlots {
			tag = tagSubstitute
		}
		fmt.Fprintf(b, "%d. [%s] %s | ник: %s | контакт: %s\n",
			i+1, tag,
			field(player, fullNameKeys...),
			field(player, nicknameKeys...),
			field(player, contactKeys...),
		)
	}
}

func writeIndividual(b *strings.Builder, data map[string]any) {
	player, ok := data["player"].(map[string]any)
	if !ok {
		player = data
	}
	b.WriteString("\nУчастник:\n")
	fmt.Fprintf(b, "ФИО: %s\n", field(player, fullNameKeys...))
	fmt.Fprintf(b, "Ник: %s\n", field(player, nicknameKeys...))
	fmt.Fprintf(b, "Контакт: %s\n", field(player, contactKeys...))
}

// field returns the first non-blank value among keys, or the placeholder.
func field(m map[string]any, keys ...string) string {
	for _, k := range keys {
		v, ok := m[k]
		if !ok || v == nil {
			continue
		}
		var s string
		switch t := v.(type) {
		case string:
			s = t
		case float64:
			s = strconv.FormatFloat(t, 'f', -1, 64)
		default:
			s = fmt.Sprint(t)
		}
		if s = strings.TrimSpace(s); s != "" {
			return s
		}
	}
	return placeholder
}

func orPlaceholder(s string) string {
	if s == "" {
		return placeholder
	}
	return s
}
