package chart

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/greenkode/miniledger/pkg/ledger"
)

const validChart = `
currencies:
  - name: USD
    id: 0
  - name: NGN
    id: 7000

journal: retail

chart:
  code: bank
  description: Retail bank
  accounts:
    - code: assets
      description: Assets
      accounts:
        - code: settlement.usd
          description: Settlement cash
          type: debit
          currency: USD
        - code: bridge.assets.usd
          description: bridge-assets-USD
          type: debit
          currency: USD
    - code: liabilities
      description: Liabilities
      accounts:
        - code: cust.alice
          description: Alice wallet
          type: credit
          currency: USD
          tags:
            tier: premium
        - code: bridge.liabilities.usd
          description: bridge-liabilities-USD
          type: credit
          currency: USD
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "chart.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadValidChart(t *testing.T) {
	cfg, err := Load(writeConfig(t, validChart))
	require.NoError(t, err)

	assert.Equal(t, "retail", cfg.JournalName())

	root, currencies, err := cfg.Build()
	require.NoError(t, err)

	assert.Len(t, currencies, 2)
	assert.Equal(t, "bank", root.Code)
	assert.False(t, root.IsFinal())

	alice := root.FindByCode("cust.alice")
	require.NotNil(t, alice)
	assert.True(t, alice.IsFinal())
	assert.True(t, alice.IsCredit())
	assert.Equal(t, "USD", alice.CurrencyCode)
	assert.True(t, alice.Tags.Contains("tier:premium"))
	assert.Equal(t, root, alice.Root)

	bridge := root.FindByCode("bridge.assets.usd")
	require.NotNil(t, bridge)
	assert.True(t, bridge.IsAssetBridge())
}

func TestJournalNameDefaultsToChartCode(t *testing.T) {
	cfg, err := Load(writeConfig(t, validChart))
	require.NoError(t, err)
	cfg.Journal = ""

	assert.Equal(t, "bank", cfg.JournalName())
}

func TestLoadRejectsOverlappingCurrencyRanges(t *testing.T) {
	const overlapping = `
currencies:
  - name: USD
    id: 840
  - name: NGN
    id: 566

chart:
  code: bank
  accounts:
    - code: cash
      type: debit
      currency: USD
`
	_, err := Load(writeConfig(t, overlapping))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "overlap")
}

func TestLoadRejectsDuplicateCodes(t *testing.T) {
	const duplicated = `
currencies:
  - name: USD
    id: 0

chart:
  code: bank
  accounts:
    - code: cash
      type: debit
      currency: USD
    - code: cash
      type: debit
      currency: USD
`
	_, err := Load(writeConfig(t, duplicated))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate account code")
}

func TestLoadRejectsFinalAccountWithoutCurrency(t *testing.T) {
	const missingCurrency = `
currencies:
  - name: USD
    id: 0

chart:
  code: bank
  accounts:
    - code: cash
      type: debit
`
	_, err := Load(writeConfig(t, missingCurrency))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "no currency")
}

func TestLoadRejectsUnknownType(t *testing.T) {
	const badType = `
currencies:
  - name: USD
    id: 0

chart:
  code: bank
  accounts:
    - code: cash
      type: asset
      currency: USD
`
	_, err := Load(writeConfig(t, badType))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid type")
}

func TestBuildWiresParentAndRoot(t *testing.T) {
	cfg, err := Load(writeConfig(t, validChart))
	require.NoError(t, err)

	root, _, err := cfg.Build()
	require.NoError(t, err)

	assets := root.FindByCode("assets")
	require.NotNil(t, assets)
	assert.Equal(t, root, assets.Parent)
	assert.False(t, assets.IsFinal())

	var finals []string
	root.Walk(func(a *ledger.Account) bool {
		if a.IsFinal() {
			finals = append(finals, a.Code)
		}
		return true
	})
	assert.Len(t, finals, 4)
}
