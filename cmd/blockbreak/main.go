// Command blockbreak builds fresh oracle sessions and runs the chosen
// plaintext attacks against them.
package main

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"

	"blockbreak/internal/bytewise"
	"blockbreak/internal/forge"
	"blockbreak/internal/oracle"
	"blockbreak/internal/probe"
)

const defaultSecret = "Um9sbGluJyBpbiBteSA1LjAKV2l0aCBteSByYWctdG9wIGRvd24gc28gbXkg" +
	"aGFpciBjYW4gYmxvdwpUaGUgZ2lybGllcyBvbiBzdGFuZGJ5IHdhdmluZyBq" +
	"dXN0IHRvIHNheSBoaQpEaWQgeW91IHN0b3A/IE5vLCBJIGp1c3QgZHJvdmUg" +
	"YnkK"

type config struct {
	attack  string
	secret  []byte
	prefix  string
	rand    io.Reader
	verbose bool
}

func parseFlags(args []string) (config, error) {
	fs := flag.NewFlagSet("blockbreak", flag.ContinueOnError)

	attack := fs.String("attack", "all", "attack to run: detect, recover, cutpaste, bitflip or all")
	secret := fs.String("secret", defaultSecret, "base64 encoded suffix hidden by the recover oracle")
	seed := fs.String("seed", "", "hex seed for reproducible sessions (default: crypto/rand)")
	prefix := fs.String("prefix", "random", "hidden prefix for the recover oracle: random, none or a length")
	verbose := fs.Bool("v", false, "log attack progress")

	if err := fs.Parse(args); err != nil {
		return config{}, err
	}

	cfg := config{attack: *attack, prefix: *prefix, rand: rand.Reader, verbose: *verbose}

	var err error
	if cfg.secret, err = base64.StdEncoding.DecodeString(*secret); err != nil {
		return config{}, fmt.Errorf("-secret: %w", err)
	}

	if *seed != "" {
		raw, err := hex.DecodeString(*seed)
		if err != nil {
			return config{}, fmt.Errorf("-seed: %w", err)
		}
		cfg.rand = oracle.SeededReader(raw)
	}

	return cfg, nil
}

func (c config) prefixOption() (oracle.Option, error) {
	switch c.prefix {
	case "random":
		return oracle.WithRandomPrefix(), nil
	case "none", "":
		return oracle.WithPrefix(nil), nil
	}

	n, err := strconv.Atoi(c.prefix)
	if err != nil || n < 0 {
		return nil, fmt.Errorf("-prefix: want random, none or a length, got %q", c.prefix)
	}

	prefix := make([]byte, n)
	if _, err := io.ReadFull(c.rand, prefix); err != nil {
		return nil, err
	}

	return oracle.WithPrefix(prefix), nil
}

func runDetect(cfg config, logger *log.Logger) error {
	s, err := oracle.NewSession(cfg.secret, oracle.WithRandomMode(), oracle.WithRand(cfg.rand))
	if err != nil {
		return err
	}

	params, err := probe.Analyze(s)
	if err != nil {
		return err
	}

	logger.Printf("session mode %s", s.Mode())
	fmt.Printf("detect: block size %d, ECB %t, prefix %d bytes, secret %d bytes\n",
		params.BlockSize, params.ECB, params.PrefixLength, params.SecretLength())

	return nil
}

func runRecover(cfg config, logger *log.Logger) error {
	prefix, err := cfg.prefixOption()
	if err != nil {
		return err
	}

	s, err := oracle.NewSession(cfg.secret, prefix, oracle.WithRand(cfg.rand))
	if err != nil {
		return err
	}

	secret, err := bytewise.Recover(s, logger)
	if err != nil {
		return err
	}

	fmt.Printf("recover:\n%s", secret)
	return nil
}

func runCutPaste(cfg config, logger *log.Logger) error {
	profiles, err := oracle.NewProfiles(oracle.WithRand(cfg.rand))
	if err != nil {
		return err
	}

	forged, err := forge.CutAndPaste(profiles, []byte("user"), []byte("admin"), logger)
	if err != nil {
		return err
	}

	values, err := profiles.Decrypt(forged)
	if err != nil {
		return err
	}

	fmt.Printf("cutpaste: role=%s (%x)\n", values.Get("role"), forged)
	return nil
}

func runBitFlip(cfg config, logger *log.Logger) error {
	comments, err := oracle.NewComments(oracle.WithRand(cfg.rand))
	if err != nil {
		return err
	}

	forged, err := forge.BitFlip(comments, []byte(";admin=true;"), logger)
	if err != nil {
		return err
	}

	admin, err := comments.IsAdmin(forged)
	if err != nil {
		return err
	}

	fmt.Printf("bitflip: admin=%t (%x)\n", admin, forged)
	return nil
}

func run(args []string) error {
	cfg, err := parseFlags(args)
	if err != nil {
		return err
	}

	logger := log.New(io.Discard, "", 0)
	if cfg.verbose {
		logger = log.New(os.Stderr, "blockbreak: ", log.Ltime)
	}

	attacks := []struct {
		name string
		run  func(config, *log.Logger) error
	}{
		{"detect", runDetect},
		{"recover", runRecover},
		{"cutpaste", runCutPaste},
		{"bitflip", runBitFlip},
	}

	ran := false
	for _, a := range attacks {
		if cfg.attack != "all" && cfg.attack != a.name {
			continue
		}
		ran = true
		if err := a.run(cfg, logger); err != nil {
			return fmt.Errorf("%s: %w", a.name, err)
		}
	}

	if !ran {
		return fmt.Errorf("unknown attack %q", cfg.attack)
	}

	return nil
}

func main() {
	if err := run(os.Args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		log.Fatal(err)
	}
}
