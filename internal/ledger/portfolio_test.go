package ledger

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func emptyPortfolio() Portfolio {
	return NewPortfolio("p1", "Growth", "u1", decimal.Zero, date("2024-01-01"))
}

func mustApply(t *testing.T, p Portfolio, txs ...Transaction) Portfolio {
	t.Helper()
	for _, tx := range txs {
		next, err := Apply(p, tx)
		if err != nil {
			t.Fatalf("apply %s %s: %v", tx.Kind, tx.Symbol, err)
		}
		p = next
	}
	return p
}

func TestApplyDepositBuySell(t *testing.T) {
	// The canonical round trip: fund, buy, sell everything.
	p := emptyPortfolio()

	p = mustApply(t, p, cash(KindDeposit, "10000"))
	if !p.CashBalance.Equal(dec("10000")) {
		t.Fatalf("expected cash 10000 after deposit, got %s", p.CashBalance)
	}

	p = mustApply(t, p, buy("AAPL", "10", "150", "9.99"))
	if !p.CashBalance.Equal(dec("8490.01")) {
		t.Errorf("expected cash 8490.01 after buy, got %s", p.CashBalance)
	}
	pos, ok := p.Position("AAPL")
	if !ok {
		t.Fatal("expected AAPL position after buy")
	}
	if !pos.Quantity.Equal(dec("10")) || !pos.CostBasis.Equal(dec("150")) {
		t.Errorf("expected 10 shares at 150, got %s at %s", pos.Quantity, pos.CostBasis)
	}

	p = mustApply(t, p, sell("AAPL", "10", "160", "9.99"))
	if !p.CashBalance.Equal(dec("10080.02")) {
		t.Errorf("expected cash 10080.02 after sell, got %s", p.CashBalance)
	}
	if _, ok := p.Position("AAPL"); ok {
		t.Error("expected AAPL position removed after full sell")
	}
	if len(p.Transactions) != 3 {
		t.Errorf("expected 3 journal entries, got %d", len(p.Transactions))
	}

	// Realized gain on gross amounts: (160-150)*10, fees stay in the cash ledger.
	if got := RealizedGainLoss(p); !got.Equal(dec("100")) {
		t.Errorf("expected realized gain 100, got %s", got)
	}
}

func TestApplyBuyWeightedAverage(t *testing.T) {
	t.Run("two_buys", func(t *testing.T) {
		p := mustApply(t, emptyPortfolio(),
			cash(KindDeposit, "100000"),
			buy("MSFT", "10", "100", "0"),
			buy("MSFT", "30", "140", "0"),
		)
		pos, _ := p.Position("MSFT")
		if !pos.Quantity.Equal(dec("40")) {
			t.Errorf("expected quantity 40, got %s", pos.Quantity)
		}
		// (10*100 + 30*140) / 40 = 130
		if !pos.CostBasis.Equal(dec("130")) {
			t.Errorf("expected cost basis 130, got %s", pos.CostBasis)
		}
	})

	t.Run("weighted_average_law", func(t *testing.T) {
		// For any sequence of buys: quantity == sum(q) and
		// cost_basis == sum(p*q)/sum(q).
		buys := []struct{ qty, price string }{
			{"3", "10.50"}, {"7", "11.25"}, {"0.5", "9.80"}, {"12", "10"}, {"1.5", "13.33"},
		}
		p := mustApply(t, emptyPortfolio(), cash(KindDeposit, "10000"))
		totalQty, totalCost := decimal.Zero, decimal.Zero
		for _, b := range buys {
			p = mustApply(t, p, buy("VT", b.qty, b.price, "0"))
			totalQty = totalQty.Add(dec(b.qty))
			totalCost = totalCost.Add(dec(b.qty).Mul(dec(b.price)))
		}
		pos, _ := p.Position("VT")
		if !pos.Quantity.Equal(totalQty) {
			t.Errorf("expected quantity %s, got %s", totalQty, pos.Quantity)
		}
		if !pos.CostBasis.Equal(totalCost.Div(totalQty)) {
			t.Errorf("expected cost basis %s, got %s", totalCost.Div(totalQty), pos.CostBasis)
		}
	})

	t.Run("open_date_is_first_buy", func(t *testing.T) {
		first := buy("NVDA", "1", "500", "0")
		second := buy("NVDA", "1", "600", "0")
		second.Date = date("2024-03-01")
		p := mustApply(t, emptyPortfolio(), cash(KindDeposit, "2000"), first, second)
		pos, _ := p.Position("NVDA")
		if !pos.OpenDate.Equal(first.Date) {
			t.Errorf("expected open date %s, got %s", first.Date, pos.OpenDate)
		}
	})
}

func TestApplyPartialSellKeepsCostBasis(t *testing.T) {
	p := mustApply(t, emptyPortfolio(),
		cash(KindDeposit, "10000"),
		buy("AAPL", "10", "150", "0"),
		sell("AAPL", "4", "170", "0"),
	)
	pos, ok := p.Position("AAPL")
	if !ok {
		t.Fatal("expected AAPL position to survive a partial sell")
	}
	if !pos.Quantity.Equal(dec("6")) {
		t.Errorf("expected quantity 6, got %s", pos.Quantity)
	}
	if !pos.CostBasis.Equal(dec("150")) {
		t.Errorf("sell must not change cost basis: expected 150, got %s", pos.CostBasis)
	}
}

func TestApplySellErrors(t *testing.T) {
	t.Run("position_not_found", func(t *testing.T) {
		p := mustApply(t, emptyPortfolio(), cash(KindDeposit, "1000"))
		before := p

		_, err := Apply(p, sell("TSLA", "1", "200", "0"))
		var nfErr *PositionNotFoundError
		if !errors.As(err, &nfErr) {
			t.Fatalf("expected *PositionNotFoundError, got %T: %v", err, err)
		}
		if nfErr.Symbol != "TSLA" {
			t.Errorf("expected symbol TSLA, got %s", nfErr.Symbol)
		}

		// The failed apply must leave cash and journal exactly as before.
		if !p.CashBalance.Equal(before.CashBalance) {
			t.Errorf("cash changed on failed sell: %s", p.CashBalance)
		}
		if len(p.Transactions) != len(before.Transactions) {
			t.Errorf("journal changed on failed sell: %d entries", len(p.Transactions))
		}
	})

	t.Run("insufficient_quantity", func(t *testing.T) {
		p := mustApply(t, emptyPortfolio(),
			cash(KindDeposit, "10000"),
			buy("AAPL", "10", "150", "0"),
		)

		_, err := Apply(p, sell("AAPL", "15", "160", "0"))
		var iqErr *InsufficientQuantityError
		if !errors.As(err, &iqErr) {
			t.Fatalf("expected *InsufficientQuantityError, got %T: %v", err, err)
		}

		pos, _ := p.Position("AAPL")
		if !pos.Quantity.Equal(dec("10")) {
			t.Errorf("position changed on rejected sell: %s", pos.Quantity)
		}
	})

	t.Run("validation_failure_leaves_snapshot_untouched", func(t *testing.T) {
		p := mustApply(t, emptyPortfolio(), cash(KindDeposit, "1000"))
		_, err := Apply(p, buy("", "10", "150", "0"))
		assertValidationError(t, err, "symbol")
		if len(p.Transactions) != 1 {
			t.Errorf("journal changed on invalid transaction: %d entries", len(p.Transactions))
		}
	})
}

func TestApplyCashConservation(t *testing.T) {
	// cash_balance equals the running sum of net amounts over the journal.
	p := mustApply(t, emptyPortfolio(),
		cash(KindDeposit, "5000"),
		buy("AAPL", "10", "150", "5"),
		cash(KindDividend, "42.50"),
		cash(KindInterest, "3.10"),
		sell("AAPL", "5", "160", "5"),
		cash(KindFee, "12"),
		cash(KindWithdrawal, "500"),
		cash(KindOther, "999"),
	)

	sum := decimal.Zero
	for _, tx := range p.Transactions {
		sum = sum.Add(NetAmount(tx))
	}
	if !p.CashBalance.Equal(sum) {
		t.Errorf("cash balance %s diverged from journal sum %s", p.CashBalance, sum)
	}
}

func TestApplyDoesNotMutateInput(t *testing.T) {
	p := mustApply(t, emptyPortfolio(),
		cash(KindDeposit, "10000"),
		buy("AAPL", "10", "150", "0"),
	)
	journalLen := len(p.Transactions)
	cashBefore := p.CashBalance

	next := mustApply(t, p, buy("AAPL", "5", "200", "0"), sell("AAPL", "15", "210", "0"))

	if len(p.Transactions) != journalLen {
		t.Errorf("input journal grew from %d to %d", journalLen, len(p.Transactions))
	}
	if !p.CashBalance.Equal(cashBefore) {
		t.Errorf("input cash changed to %s", p.CashBalance)
	}
	if pos, _ := p.Position("AAPL"); !pos.Quantity.Equal(dec("10")) {
		t.Errorf("input position changed to %s shares", pos.Quantity)
	}
	if _, ok := next.Position("AAPL"); ok {
		t.Error("expected AAPL removed from the new snapshot")
	}
}

func TestReplay(t *testing.T) {
	txs := []Transaction{
		cash(KindDeposit, "10000"),
		buy("AAPL", "10", "150", "9.99"),
		sell("AAPL", "10", "160", "9.99"),
	}

	p, err := Replay(emptyPortfolio(), txs)
	if err != nil {
		t.Fatalf("replay failed: %v", err)
	}
	if !p.CashBalance.Equal(dec("10080.02")) {
		t.Errorf("expected cash 10080.02, got %s", p.CashBalance)
	}

	t.Run("stops_at_first_failure", func(t *testing.T) {
		bad := append(txs[:2:2], sell("AAPL", "99", "160", "0"))
		_, err := Replay(emptyPortfolio(), bad)
		var iqErr *InsufficientQuantityError
		if !errors.As(err, &iqErr) {
			t.Fatalf("expected *InsufficientQuantityError, got %T: %v", err, err)
		}
	})
}
