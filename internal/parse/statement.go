package parse

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"appliance-billing-backend/internal/store"
)

// column is one cell of a statement row. Missing cells decode as nil.
type column struct {
	Value json.RawMessage `json:"value"`
}

// statementRow maps the numbered columns of a transaction we read.
type statementRow struct {
	Date           *column `json:"column0"`
	Amount         *column `json:"column1"`
	VariableSymbol *column `json:"column5"`
	Currency       *column `json:"column14"`
	ID             *column `json:"column22"`
}

type statementDoc struct {
	AccountStatement struct {
		TransactionList struct {
			Transaction []statementRow `json:"transaction"`
		} `json:"transactionList"`
	} `json:"accountStatement"`
}

// dateLayout is the textual date form some statements use instead of epoch milliseconds.
const dateLayout = "2006-01-02-0700"

// RowError describes a statement row that could not be read.
type RowError struct {
	Row int
	ID  string
	Err error
}

func (e RowError) Error() string {
	return fmt.Sprintf("transaction %s (row %d): %v", e.ID, e.Row, e.Err)
}

// Statement extracts incoming transfers from a bank statement document.
// Rows without an id or with a non-positive amount are dropped. Rows with an
// unreadable amount or date are returned as rejects and do not stop the rest
// of the statement from being read. Only an undecodable document is an error.
func Statement(body []byte) ([]store.BankTransaction, []RowError, error) {
	var doc statementDoc
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return nil, nil, fmt.Errorf("failed to decode statement: %w", err)
	}

	rows := doc.AccountStatement.TransactionList.Transaction
	txns := make([]store.BankTransaction, 0, len(rows))
	var rejects []RowError
	for i, row := range rows {
		id := scalar(row.ID)
		if id == "" {
			continue
		}

		amount, err := Cents(scalar(row.Amount))
		if err != nil {
			rejects = append(rejects, RowError{Row: i, ID: id, Err: err})
			continue
		}
		if amount <= 0 {
			continue
		}

		at, err := paymentTime(scalar(row.Date))
		if err != nil {
			rejects = append(rejects, RowError{Row: i, ID: id, Err: err})
			continue
		}

		txns = append(txns, store.BankTransaction{
			ID:             id,
			Amount:         amount,
			VariableSymbol: scalar(row.VariableSymbol),
			Currency:       scalar(row.Currency),
			Time:           at,
		})
	}
	return txns, rejects, nil
}

// scalar renders a cell as plain text. Strings are unquoted, numbers are
// kept as written and null or missing cells become "".
func scalar(c *column) string {
	if c == nil || len(c.Value) == 0 {
		return ""
	}
	raw := strings.TrimSpace(string(c.Value))
	if raw == "null" {
		return ""
	}
	if strings.HasPrefix(raw, `"`) {
		var s string
		if err := json.Unmarshal([]byte(raw), &s); err != nil {
			return ""
		}
		return strings.TrimSpace(s)
	}
	return raw
}

var (
	minCents = decimal.NewFromInt(math.MinInt64)
	maxCents = decimal.NewFromInt(math.MaxInt64)
)

// Cents converts a decimal amount such as "150.5" or "1.505e2" into 15050.
// Digits past the second decimal place are truncated. Amounts that do not fit
// in int64 cents are rejected.
func Cents(amount string) (int64, error) {
	if amount == "" {
		return 0, nil
	}
	mantissa, _, _ := strings.Cut(strings.ToLower(amount), "e")
	if len(mantissa) > 1 && strings.ContainsAny(mantissa[1:], "+-") {
		return 0, fmt.Errorf("invalid amount %q", amount)
	}

	d, err := decimal.NewFromString(amount)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", amount, err)
	}
	// Anything under one cent truncates to zero. Checking it up front keeps
	// exponents like "1e-999999999" from being rescaled digit by digit.
	if d.IsZero() || d.NumDigits()+int(d.Exponent()) <= -2 {
		return 0, nil
	}
	// No int64 has more than 19 digits.
	if d.Exponent() > 18 {
		return 0, fmt.Errorf("amount %q is out of range", amount)
	}
	cents := d.Truncate(2).Shift(2)
	if cents.LessThan(minCents) || cents.GreaterThan(maxCents) {
		return 0, fmt.Errorf("amount %q is out of range", amount)
	}
	return cents.IntPart(), nil
}

func paymentTime(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, fmt.Errorf("missing payment date")
	}
	if ms, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return time.UnixMilli(ms).UTC(), nil
	}
	t, err := time.Parse(dateLayout, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid payment date %q", raw)
	}
	return t.UTC(), nil
}
