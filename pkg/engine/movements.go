package engine

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/greenkode/miniledger/pkg/ledger"
)

// MovementPrinter renders a transaction's entries as layer-grouped
// DR -> CR movements for debugging. It is a diagnostic aid only and is
// disabled by default.
type MovementPrinter struct {
	enabled bool
}

// NewMovementPrinter creates a MovementPrinter.
func NewMovementPrinter(enabled bool) *MovementPrinter {
	return &MovementPrinter{enabled: enabled}
}

type movement struct {
	from, to *ledger.Account
	amount   decimal.Decimal
	detail   string
}

// Print logs the transaction's movements under the given operation
// label. No-op when disabled.
func (p *MovementPrinter) Print(tx *ledger.Transaction, operation string) {
	if p == nil || !p.enabled {
		return
	}

	var out strings.Builder
	fmt.Fprintf(&out, "\n--- Transaction %s: %s ---\n", operation, tx.Detail)

	if p.isReversal(tx) {
		out.WriteString("TYPE: REVERSAL\n")
	}
	if tx.State.Completes != "" {
		fmt.Fprintf(&out, "COMPLETES: %s\n", tx.State.Completes)
	}

	byLayer := make(map[ledger.Layer][]*ledger.Entry)
	for _, e := range tx.Entries {
		byLayer[e.Layer] = append(byLayer[e.Layer], e)
	}
	layers := make([]ledger.Layer, 0, len(byLayer))
	for l := range byLayer {
		layers = append(layers, l)
	}
	sort.Slice(layers, func(i, j int) bool { return layers[i] < layers[j] })

	for _, layer := range layers {
		entries := byLayer[layer]
		fmt.Fprintf(&out, "\nLayer %d:\n", layer)

		movements, rest := p.matchMovements(entries)
		for _, m := range movements {
			fmt.Fprintf(&out, "  DR %s -> CR %s | %s\n",
				p.accountName(m.from), p.accountName(m.to), m.amount.Abs())
			if m.detail != "" {
				fmt.Fprintf(&out, "    Detail: %s\n", m.detail)
			}
		}
		for _, e := range rest {
			side := "DR"
			if e.IsCredit() {
				side = "CR"
			}
			fmt.Fprintf(&out, "  %s %s | %s\n", side, p.accountName(e.Account), e.Amount)
		}

		debits := decimal.Zero
		credits := decimal.Zero
		for _, e := range entries {
			if e.IsCredit() {
				credits = credits.Add(e.Amount.Abs())
			} else {
				debits = debits.Add(e.Amount.Abs())
			}
		}
		fmt.Fprintf(&out, "  Balance: Dr %s | Cr %s\n", debits, credits)
	}

	fmt.Fprintf(&out, "\nTotal entries: %d\nStatus: %s\n", len(tx.Entries), p.status(tx))

	slog.Debug("transaction movements", "operation", operation, "reference", tx.Detail, "movements", out.String())
}

// matchMovements pairs debits with credits sharing amount and detail;
// unmatched entries are returned separately.
func (p *MovementPrinter) matchMovements(entries []*ledger.Entry) ([]movement, []*ledger.Entry) {
	var debits, credits []*ledger.Entry
	for _, e := range entries {
		if e.IsCredit() {
			credits = append(credits, e)
		} else {
			debits = append(debits, e)
		}
	}

	used := make(map[*ledger.Entry]bool)
	var movements []movement
	var rest []*ledger.Entry
	for _, d := range debits {
		var match *ledger.Entry
		for _, c := range credits {
			if !used[c] && c.Amount.Abs().Equal(d.Amount.Abs()) && c.Detail == d.Detail {
				match = c
				break
			}
		}
		if match == nil {
			rest = append(rest, d)
			continue
		}
		used[match] = true
		movements = append(movements, movement{from: d.Account, to: match.Account, amount: d.Amount, detail: d.Detail})
	}
	for _, c := range credits {
		if !used[c] {
			rest = append(rest, c)
		}
	}
	return movements, rest
}

func (p *MovementPrinter) accountName(a *ledger.Account) string {
	prefix := ""
	switch {
	case a.IsAssetBridge():
		prefix = "[BridgeAsset] "
	case a.IsLiabilityBridge():
		prefix = "[BridgeLiab] "
	}
	name := a.Tags.Value("account_name")
	if name == "" {
		name = a.Description
	}
	return fmt.Sprintf("%s%s (%s)", prefix, name, a.Code)
}

func (p *MovementPrinter) isReversal(tx *ledger.Transaction) bool {
	for _, e := range tx.Entries {
		if e.Amount.IsNegative() {
			return true
		}
	}
	return false
}

func (p *MovementPrinter) status(tx *ledger.Transaction) string {
	switch {
	case tx.State.Reversed:
		return "REVERSED"
	case tx.State.Completed:
		return "COMPLETED"
	case tx.State.Completes != "":
		return "COMPLETION TRANSACTION"
	default:
		for _, e := range tx.Entries {
			if e.Completion != nil {
				return "PENDING COMPLETION"
			}
		}
		return "ACTIVE"
	}
}
