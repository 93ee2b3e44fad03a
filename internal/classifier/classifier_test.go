package classifier

import (
	"testing"

	"github.com/lexia-ai/lexia-gateway/internal/domain"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name           string
		message        string
		hasCaseContext bool
		wantIntent     domain.Intent
	}{
		{
			name:       "procedural deadline question",
			message:    "¿Cuántos días tengo para apelar?",
			wantIntent: domain.IntentProceduralQuery,
		},
		{
			name:           "summary request with open case",
			message:        "Necesito un resumen de este contrato",
			hasCaseContext: true,
			wantIntent:     domain.IntentDocumentSummary,
		},
		{
			name:       "drafting request",
			message:    "Redacta un borrador de demanda por incumplimiento",
			wantIntent: domain.IntentDocumentDrafting,
		},
		{
			name:       "legal analysis request",
			message:    "Analiza la viabilidad de la demanda y la jurisprudencia aplicable",
			wantIntent: domain.IntentLegalAnalysis,
		},
		{
			name:       "case status question",
			message:    "¿Cuál es el estado de mi caso?",
			wantIntent: domain.IntentCaseQuery,
		},
		{
			name:       "greeting",
			message:    "Hola, buenos días",
			wantIntent: domain.IntentGeneralChat,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			intent, confidence := Classify(tt.message, tt.hasCaseContext)
			if intent != tt.wantIntent {
				t.Errorf("Classify() intent = %v, want %v", intent, tt.wantIntent)
			}
			if confidence <= ScoreFloor {
				t.Errorf("Classify() confidence = %v, want > %v", confidence, ScoreFloor)
			}
		})
	}
}

func TestClassify_NoMatchDefaultsToGeneralChat(t *testing.T) {
	for _, msg := range []string{"", "xkcd zzz qwerty", "42"} {
		intent, confidence := Classify(msg, false)
		if intent != domain.IntentGeneralChat {
			t.Errorf("Classify(%q) intent = %v, want %v", msg, intent, domain.IntentGeneralChat)
		}
		if confidence != DefaultConfidence {
			t.Errorf("Classify(%q) confidence = %v, want exactly %v", msg, confidence, DefaultConfidence)
		}
	}
}

func TestClassify_CaseContextBoost(t *testing.T) {
	// "resumen del expediente" scores equally for document_summary and
	// case_query. Without an open case the tie keeps the first-found
	// intent; with one, the boost tips it to case_query.
	msg := "resumen del expediente"

	intent, _ := Classify(msg, false)
	if intent != domain.IntentDocumentSummary {
		t.Errorf("without context: intent = %v, want %v", intent, domain.IntentDocumentSummary)
	}

	intent, _ = Classify(msg, true)
	if intent != domain.IntentCaseQuery {
		t.Errorf("with context: intent = %v, want %v", intent, domain.IntentCaseQuery)
	}
}

func TestClassify_ConfidenceClamped(t *testing.T) {
	// Matches every case_query pattern, plus the boost: raw score > 1.
	msg := "el caso del expediente: estado de mi caso, qué tareas hay, próxima audiencia y notas del caso"

	intent, confidence := Classify(msg, true)
	if intent != domain.IntentCaseQuery {
		t.Fatalf("intent = %v, want %v", intent, domain.IntentCaseQuery)
	}
	if confidence > 1.0 {
		t.Errorf("confidence = %v, want <= 1.0", confidence)
	}
	if confidence != 1.0 {
		t.Errorf("confidence = %v, want clamped to 1.0", confidence)
	}
}

func TestClassify_BoostRequiresCaseTerm(t *testing.T) {
	// An open case alone must not bias messages that never mention it.
	intent, _ := Classify("Necesito un resumen de este contrato", true)
	if intent == domain.IntentCaseQuery {
		t.Error("boost applied without case-referring language")
	}
}
