// Command crosslane runs the swap-intent flow end to end against an
// in-process engine and custody services: derive an identity from a seed,
// build and sign an intent, obtain the bound deposit address, deposit,
// submit, settle, and print the resulting order log.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/awnumar/memguard"
	"go.uber.org/zap"

	"github.com/crosslane-xyz/crosslane/internal/config"
	"github.com/crosslane-xyz/crosslane/internal/custody"
	"github.com/crosslane-xyz/crosslane/internal/engine"
	"github.com/crosslane-xyz/crosslane/internal/identity"
	"github.com/crosslane-xyz/crosslane/internal/orchestrator"
	"github.com/crosslane-xyz/crosslane/internal/swap"
)

func main() {
	defer memguard.Purge()

	var (
		seed       = flag.String("seed", "Alice", "identity seed string")
		fromFlag   = flag.String("from", "sepolia/USDC", "source chain/asset")
		toFlag     = flag.String("to", "solana-devnet/USDC", "destination chain/asset")
		amountsStr = flag.String("amount", "100", "amount in display units")
		minOutStr  = flag.String("min-out", "99", "minimum acceptable output in display units")
	)
	flag.Parse()

	if err := run(*seed, *fromFlag, *toFlag, *amountsStr, *minOutStr); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(seed, fromFlag, toFlag, amountStr, minOutStr string) error {
	log, err := zap.NewDevelopment()
	if err != nil {
		return err
	}
	defer log.Sync()

	source, err := parseRef(fromFlag)
	if err != nil {
		return err
	}
	dest, err := parseRef(toFlag)
	if err != nil {
		return err
	}

	registry := config.DefaultRegistry()
	srcDecimals, err := registry.Decimals(source)
	if err != nil {
		return err
	}
	dstDecimals, err := registry.Decimals(dest)
	if err != nil {
		return err
	}
	amount, err := config.ParseAmount(amountStr, srcDecimals)
	if err != nil {
		return err
	}
	minOut, err := config.ParseAmount(minOutStr, dstDecimals)
	if err != nil {
		return err
	}

	id, err := identity.Derive(seed)
	if err != nil {
		return err
	}
	fmt.Printf("Principal: %s\n", id.Principal())

	operator, err := custody.OperatorKeyFromSeed("crosslane-demo-operator")
	if err != nil {
		return err
	}
	eng := engine.New(log.Named("engine"))

	custodies := make(map[swap.Chain]orchestrator.CustodyClient)
	oracles := make(map[swap.Chain]engine.FundsOracle)
	transferers := make(map[swap.Chain]engine.Transferer)
	for _, chain := range []swap.Chain{swap.ChainSepolia, swap.ChainSolanaDevnet} {
		svc, err := custody.NewService(chain, registry, eng, operator, log.Named("custody"))
		if err != nil {
			return err
		}
		custodies[chain] = svc
		oracles[chain] = svc
		transferers[chain] = svc

		addr, err := svc.GetAddress(id.Principal())
		if err != nil {
			return err
		}
		fmt.Printf("%-14s address: %s\n", chain, addr)

		// Demo liquidity for the outbound legs.
		svc.FundPool(swap.NativeAsset(chain), 1_000_000_000_000)
		svc.FundPool(swap.AssetUSDC, 1_000_000_000)
		svc.FundPool(swap.AssetEURC, 1_000_000_000)
	}

	driver := engine.NewDriver(eng, oracles, transferers, 50*time.Millisecond, log.Named("driver"))
	client := orchestrator.New(eng, custodies, 2*time.Second, 50*time.Millisecond, log.Named("client"))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	destCustody := custodies[dest.Chain].(*custody.Service)
	destAddr, err := destCustody.GetAddress(id.Principal())
	if err != nil {
		return err
	}

	intent, err := client.BuildIntent(id, orchestrator.SwapParams{
		Source:      source,
		Dest:        dest,
		DestAddress: destAddr,
		Amount:      amount,
		MinOut:      minOut,
	})
	if err != nil {
		return err
	}

	orderID, err := client.Swap(ctx, intent)
	if err != nil {
		return err
	}
	fmt.Printf("Order %d locked (sequence %d)\n", orderID, intent.Sequence)

	go driver.Run(ctx)

	order, err := client.AwaitTerminal(ctx, orderID)
	if err != nil {
		return err
	}

	fmt.Println(strings.Repeat("=", 60))
	for _, o := range eng.ListOrders() {
		line := fmt.Sprintf("#%-4d %-10s %s -> %s  %s %s",
			o.ID, o.Status, o.Intent.Source, o.Intent.Dest,
			config.FormatBaseUnits(o.Intent.Amount, srcDecimals), o.Intent.Source.Asset)
		if o.Result != nil && o.Result.Ok {
			line += "  tx=" + o.Result.TxRef
		}
		fmt.Println(line)
	}
	fmt.Println(strings.Repeat("=", 60))

	if order.Status != engine.StatusSettled {
		return fmt.Errorf("order %d ended %s", orderID, order.Status)
	}
	if err := engine.VerifyChain(eng.ListOrders()); err != nil {
		return fmt.Errorf("order log verification: %w", err)
	}
	fmt.Println("Order log hash chain verified")
	return nil
}

func parseRef(s string) (swap.AssetRef, error) {
	parts := strings.SplitN(s, "/", 2)
	if len(parts) != 2 {
		return swap.AssetRef{}, fmt.Errorf("expected chain/asset, got %q", s)
	}
	chain, err := swap.ParseChain(parts[0])
	if err != nil {
		return swap.AssetRef{}, fmt.Errorf("%q: %w", parts[0], err)
	}
	asset, err := swap.ParseAsset(parts[1])
	if err != nil {
		return swap.AssetRef{}, fmt.Errorf("%q: %w", parts[1], err)
	}
	ref := swap.AssetRef{Chain: chain, Asset: asset}
	if !ref.Valid() {
		return swap.AssetRef{}, fmt.Errorf("%s: %w", ref, swap.ErrUnsupportedAsset)
	}
	return ref, nil
}
