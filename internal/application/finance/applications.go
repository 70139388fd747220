package finance

import (
	"context"
	"fmt"

	"github.com/arflow/backend/internal/domain/finance"
	"github.com/arflow/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// loadDocuments loads the documents named by reqs and checks that each one
// belongs to customerID and is in currency
func loadDocuments(ctx context.Context, repo finance.DocumentRepository, orgID, customerID uuid.UUID, currency string, reqs []ApplicationRequest) (map[uuid.UUID]*finance.Document, error) {
	ids := make([]uuid.UUID, 0, len(reqs))
	seen := make(map[uuid.UUID]bool, len(reqs))
	for _, r := range reqs {
		if !seen[r.DocumentID] {
			seen[r.DocumentID] = true
			ids = append(ids, r.DocumentID)
		}
	}
	docs, err := repo.FindByIDsForOrg(ctx, orgID, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]*finance.Document, len(docs))
	for _, d := range docs {
		byID[d.ID] = d
	}
	for _, id := range ids {
		doc, ok := byID[id]
		if !ok {
			return nil, shared.NewDomainError("DOCUMENT_NOT_FOUND", fmt.Sprintf("Document %s not found", id))
		}
		if doc.CustomerID != customerID {
			return nil, shared.NewDomainError("DOCUMENT_CUSTOMER_MISMATCH",
				fmt.Sprintf("Document %s belongs to a different customer", doc.DocumentNumber))
		}
		if doc.Currency != currency {
			return nil, shared.NewDomainError("CURRENCY_MISMATCH",
				fmt.Sprintf("Document %s is in %s, payment is in %s", doc.DocumentNumber, doc.Currency, currency))
		}
	}
	return byID, nil
}

// checkApplications validates reqs against the documents without changing
// anything. A card is only charged after this passes.
func checkApplications(docs map[uuid.UUID]*finance.Document, amount decimal.Decimal, reqs []ApplicationRequest) error {
	total := decimal.Zero
	perDoc := make(map[uuid.UUID]decimal.Decimal, len(reqs))
	for _, r := range reqs {
		if !r.Amount.IsPositive() {
			return shared.NewDomainError("INVALID_AMOUNT", "Applied amount must be positive")
		}
		doc := docs[r.DocumentID]
		if !doc.Type.IsReceivable() {
			return shared.NewDomainError("INVALID_DOCUMENT_TYPE", "Payments can only be applied to invoices and debit memos")
		}
		if !doc.Status.CanApplyPayment() {
			return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot apply payment to document in %s status", doc.Status))
		}
		perDoc[r.DocumentID] = perDoc[r.DocumentID].Add(r.Amount)
		if perDoc[r.DocumentID].GreaterThan(doc.BalanceDue) {
			return shared.NewDomainError("EXCEEDS_BALANCE",
				fmt.Sprintf("Applied amount %s exceeds balance due %s on %s",
					perDoc[r.DocumentID].StringFixed(2), doc.BalanceDue.StringFixed(2), doc.DocumentNumber))
		}
		total = total.Add(r.Amount)
	}
	if total.GreaterThan(amount) {
		return shared.NewDomainError("EXCEEDS_PAYMENT",
			fmt.Sprintf("Applied total %s exceeds payment amount %s", total.StringFixed(2), amount.StringFixed(2)))
	}
	return nil
}

// applyInScope applies payment to documents and saves everything through
// repos. Documents are saved with their version so two payments racing for
// one balance cannot both succeed. It returns the touched documents.
func applyInScope(ctx context.Context, repos TransactionalRepositories, payment *finance.Payment, reqs []ApplicationRequest) ([]*finance.Document, error) {
	var touched []*finance.Document
	if len(reqs) > 0 {
		docs, err := loadDocuments(ctx, repos.DocumentRepo(), payment.OrganizationID, payment.CustomerID, payment.Currency, reqs)
		if err != nil {
			return nil, err
		}
		for _, r := range reqs {
			doc := docs[r.DocumentID]
			if _, err := payment.ApplyToDocument(doc.ID, r.Amount); err != nil {
				return nil, err
			}
			if err := doc.ApplyPayment(r.Amount, payment.ID); err != nil {
				return nil, err
			}
		}
		touched = sortedDocuments(docs, reqs)
	}

	if err := repos.PaymentRepo().SaveWithLock(ctx, payment); err != nil {
		return nil, err
	}
	for _, doc := range touched {
		if err := repos.DocumentRepo().SaveWithLock(ctx, doc); err != nil {
			return nil, err
		}
	}
	return touched, nil
}

// reverseInScope restores the reversed applications on their documents and
// saves the payment
func reverseInScope(ctx context.Context, repos TransactionalRepositories, payment *finance.Payment, reversed []finance.PaymentApplication) ([]*finance.Document, error) {
	ids := make([]uuid.UUID, 0, len(reversed))
	for _, app := range reversed {
		ids = append(ids, app.DocumentID)
	}
	docs, err := repos.DocumentRepo().FindByIDsForOrg(ctx, payment.OrganizationID, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]*finance.Document, len(docs))
	for _, d := range docs {
		byID[d.ID] = d
	}
	for _, app := range reversed {
		doc, ok := byID[app.DocumentID]
		if !ok {
			continue
		}
		if err := doc.ReversePayment(app.Amount, payment.ID); err != nil {
			return nil, err
		}
	}

	if err := repos.PaymentRepo().SaveWithLock(ctx, payment); err != nil {
		return nil, err
	}
	for _, doc := range docs {
		if err := repos.DocumentRepo().SaveWithLock(ctx, doc); err != nil {
			return nil, err
		}
	}
	return docs, nil
}

// sortedDocuments returns the documents in the order reqs first names them
func sortedDocuments(docs map[uuid.UUID]*finance.Document, reqs []ApplicationRequest) []*finance.Document {
	out := make([]*finance.Document, 0, len(docs))
	seen := make(map[uuid.UUID]bool, len(docs))
	for _, r := range reqs {
		if !seen[r.DocumentID] {
			seen[r.DocumentID] = true
			out = append(out, docs[r.DocumentID])
		}
	}
	return out
}
