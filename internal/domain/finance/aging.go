package finance

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AgingBucket names a days-past-due range
type AgingBucket string

const (
	AgingBucketCurrent AgingBucket = "CURRENT"
	AgingBucket1To30   AgingBucket = "1_30"
	AgingBucket31To60  AgingBucket = "31_60"
	AgingBucket61To90  AgingBucket = "61_90"
	AgingBucketOver90  AgingBucket = "OVER_90"
)

// AgingBuckets lists the buckets in display order
var AgingBuckets = []AgingBucket{AgingBucketCurrent, AgingBucket1To30, AgingBucket31To60, AgingBucket61To90, AgingBucketOver90}

// BucketFor returns the bucket for a number of days past due
func BucketFor(daysPastDue int) AgingBucket {
	switch {
	case daysPastDue <= 0:
		return AgingBucketCurrent
	case daysPastDue <= 30:
		return AgingBucket1To30
	case daysPastDue <= 60:
		return AgingBucket31To60
	case daysPastDue <= 90:
		return AgingBucket61To90
	default:
		return AgingBucketOver90
	}
}

// AgingReport sums open balances per bucket. Credit memo balances are kept
// apart in Credits and subtracted from Total.
type AgingReport struct {
	CustomerID    *uuid.UUID
	AsOf          time.Time
	Buckets       map[AgingBucket]decimal.Decimal
	Credits       decimal.Decimal
	Total         decimal.Decimal
	Overdue       decimal.Decimal
	DocumentCount int
}

// BuildAgingReport ages docs as of asOf. Void and fully paid documents are ignored.
func BuildAgingReport(docs []Document, asOf time.Time, customerID *uuid.UUID) *AgingReport {
	report := &AgingReport{
		CustomerID: customerID,
		AsOf:       asOf,
		Buckets:    make(map[AgingBucket]decimal.Decimal, len(AgingBuckets)),
		Credits:    decimal.Zero,
		Total:      decimal.Zero,
		Overdue:    decimal.Zero,
	}
	for _, b := range AgingBuckets {
		report.Buckets[b] = decimal.Zero
	}

	for i := range docs {
		doc := &docs[i]
		if doc.Status == DocumentStatusVoid || !doc.BalanceDue.IsPositive() {
			continue
		}
		report.DocumentCount++
		if doc.Type == DocumentTypeCreditMemo {
			report.Credits = report.Credits.Add(doc.BalanceDue)
			continue
		}
		days := doc.DaysPastDue(asOf)
		bucket := BucketFor(days)
		report.Buckets[bucket] = report.Buckets[bucket].Add(doc.BalanceDue)
		report.Total = report.Total.Add(doc.BalanceDue)
		if days > 0 {
			report.Overdue = report.Overdue.Add(doc.BalanceDue)
		}
	}
	report.Total = report.Total.Sub(report.Credits)
	return report
}
