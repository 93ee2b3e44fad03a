// Package prompt assembles role-specific system prompts. Building is a
// pure function of (intent, case context): identical inputs yield
// identical strings, which tests and any future caching rely on.
package prompt

import (
	"fmt"
	"strings"

	"github.com/lexia-ai/lexia-gateway/internal/casectx"
	"github.com/lexia-ai/lexia-gateway/internal/domain"
)

// NoteMaxChars bounds each note included in the context block.
const NoteMaxChars = 200

// BuildSystemPrompt returns the system prompt for an intent, with the
// case context block appended when context is present. The block's field
// order and truncation are part of the contract.
func BuildSystemPrompt(intent domain.Intent, cc *domain.CaseContext) string {
	tmpl, ok := templates[intent]
	if !ok {
		tmpl = templates[domain.IntentGeneralChat]
	}

	if cc == nil {
		return tmpl
	}

	var b strings.Builder
	b.WriteString(tmpl)
	b.WriteString("\n\n--- EXPEDIENTE ACTIVO ---\n")

	// Identity fields first, always.
	fmt.Fprintf(&b, "Expediente: %s\n", cc.CaseNumber)
	fmt.Fprintf(&b, "Título: %s\n", cc.Title)
	fmt.Fprintf(&b, "Tipo: %s\n", cc.Type)
	fmt.Fprintf(&b, "Estado: %s\n", cc.Status)

	if cc.Description != "" {
		fmt.Fprintf(&b, "Descripción: %s\n", cc.Description)
	}
	if cc.CompanyName != "" {
		fmt.Fprintf(&b, "Empresa: %s\n", cc.CompanyName)
	}

	// The enricher already bounds the snapshot, but the caps are part of
	// this function's contract too, so they hold for any caller.
	if len(cc.Deadlines) > 0 {
		b.WriteString("Próximos vencimientos:\n")
		for i, d := range cc.Deadlines {
			if i == casectx.MaxDeadlines {
				break
			}
			fmt.Fprintf(&b, "- %s (%s)\n", d.Title, d.DueAt.Format("2006-01-02"))
		}
	}

	if len(cc.Tasks) > 0 {
		b.WriteString("Tareas abiertas:\n")
		for i, task := range cc.Tasks {
			if i == casectx.MaxTasks {
				break
			}
			fmt.Fprintf(&b, "- %s [%s]\n", task.Title, task.Status)
		}
	}

	if len(cc.Notes) > 0 {
		b.WriteString("Notas recientes:\n")
		for i, n := range cc.Notes {
			if i == casectx.MaxNotes {
				break
			}
			fmt.Fprintf(&b, "- %s\n", truncateNote(n.Body))
		}
	}

	return b.String()
}

func truncateNote(body string) string {
	runes := []rune(body)
	if len(runes) <= NoteMaxChars {
		return body
	}
	return string(runes[:NoteMaxChars])
}
