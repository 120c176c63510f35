package controller

import (
	"fmt"
	"math/rand"

	"github.com/shopspring/decimal"

	"banksim/internal/actor"
	"banksim/internal/bank"
	"banksim/internal/core"
	"banksim/internal/money"
)

func (c *Controller) createBanks(n int, rep core.Reporter) []*bank.Bank {
	initial := decimal.NewFromInt(c.cfg.InitialBalance)
	banks := make([]*bank.Bank, 0, n)
	for i := 0; i < n; i++ {
		banks = append(banks, bank.New(fmt.Sprintf("bank-%d", i+1), initial, rep))
	}
	return banks
}

func (c *Controller) createWorkers(n int, banks []*bank.Bank, rnd *rand.Rand) ([]*actor.Worker, error) {
	workers := make([]*actor.Worker, 0, n)
	for i := 0; i < n; i++ {
		w, err := actor.NewWorker(c.actorConfig(fmt.Sprintf("worker-%d", i+1), i, banks, rnd, c.cfg.DepositAmount))
		if err != nil {
			return nil, err
		}
		workers = append(workers, w)
	}
	return workers, nil
}

func (c *Controller) createSpenders(n int, banks []*bank.Bank, rnd *rand.Rand) ([]*actor.Spender, error) {
	spenders := make([]*actor.Spender, 0, n)
	for i := 0; i < n; i++ {
		s, err := actor.NewSpender(c.actorConfig(fmt.Sprintf("spender-%d", i+1), i, banks, rnd, c.cfg.WithdrawAmount))
		if err != nil {
			return nil, err
		}
		spenders = append(spenders, s)
	}
	return spenders, nil
}

// actorConfig gives the i-th actor of a role banksPerActor consecutive
// banks starting at i mod len(banks), and its own RNG seeded from rnd.
func (c *Controller) actorConfig(name string, i int, banks []*bank.Bank, rnd *rand.Rand, amounts money.Range) actor.Config {
	return actor.Config{
		Name:     name,
		Banks:    permittedBanks(banks, i, c.cfg.BanksPerActor),
		Amounts:  amounts,
		Interval: c.cfg.ActorInterval,
		Policy:   actor.Policy(c.cfg.Targeting),
		Rand:     rand.New(rand.NewSource(rnd.Int63())),
		Logger:   c.log,
	}
}

func permittedBanks(banks []*bank.Bank, i, perActor int) []*bank.Bank {
	if len(banks) == 0 {
		return nil
	}
	if perActor < 1 {
		perActor = 1
	}
	if perActor > len(banks) {
		perActor = len(banks)
	}
	out := make([]*bank.Bank, 0, perActor)
	for k := 0; k < perActor; k++ {
		out = append(out, banks[(i+k)%len(banks)])
	}
	return out
}
