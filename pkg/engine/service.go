package engine

import (
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/greenkode/miniledger/pkg/ledger"
)

// Service is the ledger transaction lifecycle: create, reverse and
// complete. Every public operation runs inside one atomic transactional
// boundary; failures never leave a transaction half-posted.
type Service struct {
	contexts     *ContextBuilder
	validator    Validator
	journals     JournalLookup
	currencies   CurrencyLookup
	transactions TransactionStore
	snapshots    SnapshotStore
	selector     *Selector
	executor     *SpecExecutor
	printer      *MovementPrinter
	atomic       Atomic
	newRef       func() string
}

// ServiceConfig wires the service's collaborators. Selector, Executor,
// Printer, Atomic and NewReference fall back to defaults when nil.
type ServiceConfig struct {
	Accounts     AccountLookup
	Currencies   CurrencyLookup
	Journals     JournalLookup
	Transactions TransactionStore
	Snapshots    SnapshotStore
	Validator    Validator
	Bridges      *BridgeResolver
	Selector     *Selector
	Executor     *SpecExecutor
	Printer      *MovementPrinter
	Atomic       Atomic
	NewReference func() string
}

// NewService creates a lifecycle Service.
func NewService(cfg ServiceConfig) *Service {
	if cfg.Bridges == nil {
		cfg.Bridges = NewBridgeResolver()
	}
	if cfg.Selector == nil {
		cfg.Selector = NewDefaultSelector()
	}
	if cfg.Executor == nil {
		cfg.Executor = NewSpecExecutor()
	}
	if cfg.Printer == nil {
		cfg.Printer = NewMovementPrinter(false)
	}
	if cfg.Atomic == nil {
		cfg.Atomic = noopAtomic{}
	}
	if cfg.Validator == nil {
		cfg.Validator = NewStandardValidator()
	}
	if cfg.NewReference == nil {
		cfg.NewReference = uuid.NewString
	}
	return &Service{
		contexts:     NewContextBuilder(cfg.Accounts, cfg.Currencies, cfg.Bridges),
		validator:    cfg.Validator,
		journals:     cfg.Journals,
		currencies:   cfg.Currencies,
		transactions: cfg.Transactions,
		snapshots:    cfg.Snapshots,
		selector:     cfg.Selector,
		executor:     cfg.Executor,
		printer:      cfg.Printer,
		atomic:       cfg.Atomic,
		newRef:       cfg.NewReference,
	}
}

// Create builds, validates and posts a transaction for the request
// against the chart, then refreshes balance snapshots. Returns the
// distinct account codes touched and the transaction reference.
func (s *Service) Create(req *CreateRequest, chart *ledger.Account) (*TransactionDetail, error) {
	var detail *TransactionDetail
	err := s.atomic.Atomically(func() error {
		var err error
		detail, err = s.create(req, chart)
		return err
	})
	return detail, err
}

func (s *Service) create(req *CreateRequest, chart *ledger.Account) (*TransactionDetail, error) {
	ctx, err := s.contexts.Build(req, chart)
	if err != nil {
		return nil, err
	}
	if err := s.validator.Validate(req, ctx); err != nil {
		return nil, err
	}

	journal, err := s.journals.JournalForChart(chart)
	if err != nil {
		return nil, err
	}

	tx := ledger.NewTransaction(req.Reference)
	tx.Journal = journal
	for k, v := range req.Metadata {
		tx.Meta.Add(k + ":" + v)
	}

	strategy, err := s.selector.Select(ctx)
	if err != nil {
		return nil, err
	}

	for _, entryReq := range req.Entries {
		payload, err := s.buildPayload(tx, entryReq, ctx)
		if err != nil {
			return nil, err
		}
		specs, err := strategy.CreateEntries(payload)
		if err != nil {
			return nil, err
		}
		if err := s.executor.Execute(tx, specs); err != nil {
			return nil, err
		}
	}

	tx.State.Group = req.Group
	tx.State.Type = req.Type

	s.printer.Print(tx, "Pre Created")

	if err := s.transactions.Post(tx); err != nil {
		return nil, err
	}
	if err := s.snapshots.UpdateSnapshotsAfterTransaction(tx); err != nil {
		return nil, err
	}

	s.printer.Print(tx, "Created")

	return &TransactionDetail{
		Reference: req.Reference,
		Metadata: mergeMetadata(req.Metadata, map[string]string{
			"account_ids":  strings.Join(tx.AccountCodes(), ","),
			"transactions": tx.Detail,
		}),
	}, nil
}

func (s *Service) buildPayload(tx *ledger.Transaction, entryReq EntryRequest, ctx *TransactionContext) (*Payload, error) {
	credit, ok := ctx.Accounts[entryReq.CreditAccount]
	if !ok {
		return nil, ledger.NewNotFound("account", entryReq.CreditAccount)
	}
	debit, ok := ctx.Accounts[entryReq.DebitAccount]
	if !ok {
		return nil, ledger.NewNotFound("account", entryReq.DebitAccount)
	}
	currency, ok := ctx.Currencies[entryReq.Currency]
	if !ok {
		return nil, ledger.NewNotFound("currency", entryReq.Currency)
	}
	bridges := ctx.Bridges[entryReq.DebitAccount]

	return &Payload{
		Transaction:     tx,
		Entry:           entryReq,
		Currency:        currency,
		DebitAccount:    debit,
		CreditAccount:   credit,
		BridgeAsset:     bridges.Asset,
		BridgeLiability: bridges.Liability,
	}, nil
}

// Reverse posts counter entries for the transaction (or every
// transaction in the group) identified by reference. Reversing an
// already-fully-reversed reference is an idempotent no-op returning
// status already_reversed; a partially reversed group fails.
func (s *Service) Reverse(reference, reversalReference string) (*TransactionDetail, error) {
	var detail *TransactionDetail
	err := s.atomic.Atomically(func() error {
		var err error
		detail, err = s.reverse(reference, reversalReference)
		return err
	})
	return detail, err
}

func (s *Service) reverse(reference, reversalReference string) (*TransactionDetail, error) {
	group, err := s.transactions.FindGroup(reference)
	if err != nil {
		return nil, fmt.Errorf("failed to look up transaction group: %w", err)
	}
	if group != nil {
		return s.reverseGroup(reference, group)
	}

	tx, err := s.transactions.FindByReference(reference)
	if err != nil {
		return nil, fmt.Errorf("failed to look up transaction: %w", err)
	}
	if tx == nil {
		return nil, ledger.NewNotFound("transaction", reference)
	}

	if tx.State.Reversed {
		return &TransactionDetail{
			Reference: reference,
			Metadata: map[string]string{
				"account_ids":  strings.Join(tx.AccountCodes(), ","),
				"transactions": reference,
				"status":       StatusAlreadyReversed,
			},
		}, nil
	}

	if _, err := s.transactions.Reverse(tx, reversalReference); err != nil {
		return nil, err
	}
	if err := s.snapshots.UpdateSnapshotsAfterTransaction(tx); err != nil {
		return nil, err
	}

	s.printer.Print(tx, "Reversed")

	return &TransactionDetail{
		Reference: reversalReference,
		Metadata: map[string]string{
			"account_ids":  strings.Join(tx.AccountCodes(), ","),
			"transactions": reference + "," + reversalReference,
		},
	}, nil
}

// reverseGroup reverses every member of the group, most recent post
// date first (ties broken by descending id), each under a fresh random
// reversal reference.
func (s *Service) reverseGroup(reference string, group *ledger.TransactionGroup) (*TransactionDetail, error) {
	accountIDs := groupAccountCodes(group)

	if group.AnyReversed() {
		if group.AllReversed() {
			return &TransactionDetail{
				Reference: reference,
				Metadata: map[string]string{
					"account_ids":  accountIDs,
					"transactions": groupReferences(group),
					"status":       StatusAlreadyReversed,
				},
			}, nil
		}
		return nil, ledger.NewInconsistentState(
			"one or more transactions in group %s have already been reversed", reference,
		)
	}

	members := make([]*ledger.Transaction, len(group.Transactions))
	copy(members, group.Transactions)
	sort.Slice(members, func(i, j int) bool {
		if !members[i].PostDate.Equal(members[j].PostDate) {
			return members[i].PostDate.After(members[j].PostDate)
		}
		return members[i].ID > members[j].ID
	})

	var reversalRefs []string
	for _, member := range members {
		ref, err := s.transactions.Reverse(member, s.newRef())
		if err != nil {
			return nil, err
		}
		reversalRefs = append(reversalRefs, ref)
	}

	for _, member := range group.Transactions {
		if err := s.snapshots.UpdateSnapshotsAfterTransaction(member); err != nil {
			return nil, err
		}
		s.printer.Print(member, "Reversed (Group)")
	}

	return &TransactionDetail{
		Reference: reference,
		Metadata: map[string]string{
			"account_ids":  accountIDs,
			"transactions": strings.Join(reversalRefs, ","),
		},
	}, nil
}

// Complete posts the completion transaction for a pending transfer,
// moving held amounts onto the base layer. Completing an
// already-completed reference is an idempotent no-op returning status
// already_completed.
func (s *Service) Complete(reference string) (*TransactionDetail, error) {
	var detail *TransactionDetail
	err := s.atomic.Atomically(func() error {
		var err error
		detail, err = s.complete(reference)
		return err
	})
	return detail, err
}

func (s *Service) complete(reference string) (*TransactionDetail, error) {
	tx, err := s.transactions.FindByReference(reference)
	if err != nil {
		return nil, fmt.Errorf("failed to look up transaction: %w", err)
	}
	if tx == nil {
		return nil, ledger.NewNotFound("transaction", reference)
	}

	if tx.State.Completed {
		return &TransactionDetail{
			Reference: reference,
			Metadata: map[string]string{
				"account_ids":  strings.Join(tx.AccountCodes(), ","),
				"transactions": reference,
				"status":       StatusAlreadyCompleted,
			},
		}, nil
	}

	if len(tx.Entries) == 0 {
		return nil, ledger.NewInconsistentState("transaction %s has no entries", reference)
	}
	if tx.State.Group == "" {
		return nil, ledger.NewInconsistentState(
			"unable to find transaction group for reference %s", reference,
		)
	}
	if tx.State.Type == "" {
		return nil, ledger.NewInconsistentState(
			"unable to find transaction type for reference %s", reference,
		)
	}

	currencies, err := s.entryCurrencies(tx)
	if err != nil {
		return nil, err
	}

	completion := s.newCompletionTransaction(tx)

	ctx := &TransactionContext{
		Pending: s.hasPendingEntries(tx, currencies),
		Chart:   tx.Entries[0].Account.Root,
		Group:   tx.State.Group,
		Type:    tx.State.Type,
	}
	strategy, err := s.selector.Select(ctx)
	if err != nil {
		return nil, err
	}

	if err := strategy.Complete(tx, completion, currencies); err != nil {
		return nil, err
	}

	s.printer.Print(completion, "Pre Completed")

	if err := s.transactions.Complete(tx, completion); err != nil {
		return nil, err
	}
	if err := s.snapshots.UpdateSnapshotsAfterTransaction(tx); err != nil {
		return nil, err
	}

	s.printer.Print(completion, "Completed")

	return &TransactionDetail{
		Reference: reference,
		Metadata: map[string]string{
			"account_ids":  strings.Join(tx.AccountCodes(), ","),
			"transactions": reference + "," + completion.Detail,
		},
	}, nil
}

// entryCurrencies resolves the currencies of every entry account,
// keyed by currency code.
func (s *Service) entryCurrencies(tx *ledger.Transaction) (map[string]ledger.Currency, error) {
	seen := make(map[string]struct{})
	var names []string
	for _, e := range tx.Entries {
		if _, ok := seen[e.Account.CurrencyCode]; ok {
			continue
		}
		seen[e.Account.CurrencyCode] = struct{}{}
		names = append(names, e.Account.CurrencyCode)
	}
	currencies, err := s.currencies.CurrenciesByNames(names)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve currencies: %w", err)
	}
	for _, n := range names {
		if _, ok := currencies[n]; !ok {
			return nil, ledger.NewNotFound("currency", n)
		}
	}
	return currencies, nil
}

// hasPendingEntries reports whether any entry sits on a pending layer
// of any resolved currency.
func (s *Service) hasPendingEntries(tx *ledger.Transaction, currencies map[string]ledger.Currency) bool {
	for _, c := range currencies {
		if tx.HasLayer(ledger.LayerFor(c, ledger.LayerPending)) {
			return true
		}
	}
	return false
}

// newCompletionTransaction builds the completion shell: fresh random
// reference, same journal, metadata copied from the original plus the
// completes linkage.
func (s *Service) newCompletionTransaction(original *ledger.Transaction) *ledger.Transaction {
	completion := ledger.NewTransaction(s.newRef())
	completion.Journal = original.Journal
	completion.Meta = original.Meta.Clone()
	completion.State = ledger.State{
		Group:     original.State.Group,
		Type:      original.State.Type,
		Completes: original.Detail,
	}
	return completion
}

func groupAccountCodes(group *ledger.TransactionGroup) string {
	var parts []string
	for _, tx := range group.Transactions {
		parts = append(parts, strings.Join(tx.AccountCodes(), ","))
	}
	return strings.Join(parts, ",")
}

func groupReferences(group *ledger.TransactionGroup) string {
	var refs []string
	for _, tx := range group.Transactions {
		refs = append(refs, tx.Detail)
	}
	return strings.Join(refs, ",")
}

func mergeMetadata(base, extra map[string]string) map[string]string {
	out := make(map[string]string, len(base)+len(extra))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range extra {
		out[k] = v
	}
	return out
}
