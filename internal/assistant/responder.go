// Package assistant implements the bilingual citizen services responder:
// keyword intent matching, entity extraction, and templated replies over
// the read-only store.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode"

	"github.com/opengov-pk/shafaf/internal/domain"
	"github.com/opengov-pk/shafaf/internal/repository"
)

const dueDateLayout = "2006-01-02"

// Responder answers citizen messages. Stateless between requests; every
// reply is a pure function of the message and the stored records, and it
// never fails the request: store trouble degrades to an apology template.
type Responder struct {
	repo        domain.Repository
	defaultLang string
}

// NewResponder wires the responder to the store. The default language is
// used when detection is inconclusive.
func NewResponder(repo domain.Repository, cfg domain.AssistantConfig) *Responder {
	lang := cfg.DefaultLanguage
	if lang != domain.LanguageEnglish && lang != domain.LanguageUrdu {
		lang = domain.LanguageEnglish
	}
	return &Responder{repo: repo, defaultLang: lang}
}

// Reply classifies the message and produces a templated answer. It never
// returns an error; empty input yields the fallback template.
func (r *Responder) Reply(ctx context.Context, req *domain.ChatRequest) *domain.ChatReply {
	message := strings.TrimSpace(req.Message)
	language := r.resolveLanguage(req.Language, message)

	if message == "" {
		return &domain.ChatReply{
			Response:    tmpl(tmplFallback, language),
			Intent:      domain.IntentFallback,
			Language:    language,
			Confidence:  0,
			Suggestions: suggestions("default", language),
		}
	}

	intent, hits := classify(message)

	var text string
	switch intent {
	case domain.IntentEmergency:
		text = tmpl(tmplEmergency, language)
	case domain.IntentCNICVerify:
		text, hits = r.verifyCNIC(ctx, message, language, hits)
	case domain.IntentBillInquiry:
		text, hits = r.lookupBills(ctx, message, language, hits)
	case domain.IntentComplaint:
		text = tmpl(tmplComplaint, language)
	case domain.IntentFAQ:
		text = tmpl(tmplFAQ, language)
	case domain.IntentGreeting:
		text = tmpl(tmplGreeting, language)
	default:
		text = tmpl(tmplFallback, language)
	}

	return &domain.ChatReply{
		Response:    text,
		Intent:      intent,
		Language:    language,
		Confidence:  confidence(hits),
		Suggestions: suggestions(intent, language),
	}
}

// resolveLanguage honors an explicit request language and otherwise
// detects from the message, falling back to the configured default for
// letterless input.
func (r *Responder) resolveLanguage(requested, message string) string {
	switch strings.ToLower(strings.TrimSpace(requested)) {
	case domain.LanguageEnglish:
		return domain.LanguageEnglish
	case domain.LanguageUrdu:
		return domain.LanguageUrdu
	}
	if !hasLetter(message) {
		return r.defaultLang
	}
	return DetectLanguage(message)
}

// verifyCNIC answers the cnic_verification intent. A malformed identity
// number is rejected without touching the store.
func (r *Responder) verifyCNIC(ctx context.Context, message, language string, hits int) (string, int) {
	cnic, ok := domain.ExtractCNIC(message)
	if !ok {
		if hasDigit(message) {
			return tmpl(tmplCNICInvalid, language), hits
		}
		return tmpl(tmplCNICPrompt, language), hits
	}
	if !domain.ValidCNIC(cnic) {
		return tmpl(tmplCNICInvalid, language), hits
	}

	citizen, err := r.repo.GetCitizenByCNIC(ctx, cnic)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return fmt.Sprintf(tmpl(tmplCNICNotFound, language), cnic), entityHits
	case err != nil:
		slog.Error("citizen lookup failed", "cnic", cnic, "error", err)
		return tmpl(tmplStoreUnready, language), hits
	}
	return fmt.Sprintf(tmpl(tmplCNICVerified, language), citizen.CNIC, citizen.Name, citizen.Status), entityHits
}

// lookupBills answers the bill_inquiry intent, preferring an account
// token over a CNIC when both are present.
func (r *Responder) lookupBills(ctx context.Context, message, language string, hits int) (string, int) {
	if account, ok := domain.ExtractAccount(message); ok {
		bill, err := r.repo.GetBillByAccount(ctx, account)
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return fmt.Sprintf(tmpl(tmplBillNotFound, language), account), entityHits
		case err != nil:
			slog.Error("bill lookup failed", "account", account, "error", err)
			return tmpl(tmplStoreUnready, language), hits
		}
		return fmt.Sprintf(tmpl(tmplBillLine, language),
			bill.Account, bill.Type, bill.Amount, bill.DueDate.Format(dueDateLayout), bill.Status), entityHits
	}

	cnic, ok := domain.ExtractCNIC(message)
	if !ok {
		if hasDigit(message) {
			return tmpl(tmplCNICInvalid, language), hits
		}
		return tmpl(tmplBillPrompt, language), hits
	}
	if !domain.ValidCNIC(cnic) {
		return tmpl(tmplCNICInvalid, language), hits
	}

	citizen, err := r.repo.GetCitizenByCNIC(ctx, cnic)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return fmt.Sprintf(tmpl(tmplCNICNotFound, language), cnic), entityHits
	case err != nil:
		slog.Error("citizen lookup failed", "cnic", cnic, "error", err)
		return tmpl(tmplStoreUnready, language), hits
	}

	bills, err := r.repo.ListBillsByCNIC(ctx, cnic)
	if err != nil {
		slog.Error("bill listing failed", "cnic", cnic, "error", err)
		return tmpl(tmplStoreUnready, language), hits
	}
	if len(bills) == 0 {
		return fmt.Sprintf(tmpl(tmplBillsNone, language), citizen.Name), entityHits
	}

	var total float64
	lines := make([]string, 0, len(bills))
	for _, b := range bills {
		total += b.Amount
		lines = append(lines, "- "+fmt.Sprintf(tmpl(tmplBillLine, language),
			b.Account, b.Type, b.Amount, b.DueDate.Format(dueDateLayout), b.Status))
	}
	return fmt.Sprintf(tmpl(tmplBillsFound, language),
		citizen.Name, len(bills), total, strings.Join(lines, "\n")), entityHits
}

func hasDigit(s string) bool {
	return strings.ContainsFunc(s, unicode.IsDigit)
}

func hasLetter(s string) bool {
	return strings.ContainsFunc(s, unicode.IsLetter)
}
