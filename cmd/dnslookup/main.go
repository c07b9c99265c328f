// SPDX-License-Identifier: GPL-3.0-or-later

// Command dnslookup sends a single A or AAAA query over UDP and prints
// the addresses contained in the reply.
//
// Settings come from DNSWIRE_* environment variables and from flags.
// Missing type, name or server are read interactively from stdin.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/bassosimone/dnswire"
	"github.com/bassosimone/dnswire/internal/config"
	"github.com/bassosimone/dnswire/internal/log"
	"github.com/miekg/dns"
	"gopkg.in/yaml.v3"
)

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

// run is main without process-wide side effects, so tests can drive it.
func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	// 1. load the configuration
	fs := config.NewFlagSet("dnslookup")
	fs.SetOutput(stderr)
	cfg, err := config.Load(fs, args)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		fmt.Fprintf(stderr, "dnslookup: %s\n", err)
		return 2
	}

	// 2. ask for whatever is still missing
	if err := prompt(cfg, stdin, stderr); err != nil {
		fmt.Fprintf(stderr, "dnslookup: %s\n", err)
		return 2
	}
	if err := config.Validate(cfg); err != nil {
		fmt.Fprintf(stderr, "dnslookup: %s\n", err)
		return 2
	}

	// 3. configure logging
	if err := log.Configure(cfg.Env, cfg.LogLevel); err != nil {
		fmt.Fprintf(stderr, "dnslookup: %s\n", err)
		return 2
	}

	// 4. perform the lookup
	qtype, err := dnswire.ParseType(cfg.Type)
	if err != nil {
		fmt.Fprintf(stderr, "dnslookup: %s\n", err)
		return 2
	}
	ctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	log.Debug(map[string]any{
		"type":    cfg.Type,
		"name":    cfg.Name,
		"server":  cfg.Server,
		"timeout": cfg.Timeout.String(),
	}, "starting lookup")

	txp := &dnswire.Transport{Logger: log.GetLogger()}
	reply, err := txp.LookupAll(ctx, qtype, cfg.Name, cfg.Server)
	if err != nil {
		fmt.Fprintf(stderr, "dnslookup: %s: %s\n", cfg.Name, err)
		return 1
	}

	// 5. print the results
	found, err := printReply(stdout, cfg, qtype, reply)
	if err != nil {
		fmt.Fprintf(stderr, "dnslookup: %s\n", err)
		return 1
	}
	if !found {
		fmt.Fprintf(stderr, "dnslookup: %s: %s\n", cfg.Name, dnswire.ErrNoData)
		return 1
	}
	return 0
}

// prompt fills the empty Type, Name and Server fields reading lines from stdin.
func prompt(cfg *config.AppConfig, stdin io.Reader, stderr io.Writer) error {
	fields := []struct {
		value *string
		text  string
	}{
		{&cfg.Type, "Enter query type (A or AAAA): "},
		{&cfg.Name, "Enter domain name (e.g., www.nyu.edu): "},
		{&cfg.Server, "Enter DNS server IP (e.g., 8.8.8.8): "},
	}
	scanner := bufio.NewScanner(stdin)
	for _, field := range fields {
		if *field.value != "" {
			continue
		}
		fmt.Fprint(stderr, field.text)
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return err
			}
			return io.ErrUnexpectedEOF
		}
		*field.value = strings.TrimSpace(scanner.Text())
	}
	cfg.Type = strings.ToUpper(cfg.Type)
	return nil
}

type yamlReply struct {
	Server   string       `yaml:"server"`
	Header   yamlHeader   `yaml:"header"`
	Question yamlQuestion `yaml:"question"`
	Answers  []yamlAnswer `yaml:"answers"`
}

type yamlHeader struct {
	ID                 uint16 `yaml:"id"`
	Rcode              string `yaml:"rcode"`
	Authoritative      bool   `yaml:"authoritative"`
	Truncated          bool   `yaml:"truncated"`
	RecursionAvailable bool   `yaml:"recursion_available"`
}

type yamlQuestion struct {
	Name  string `yaml:"name"`
	Type  string `yaml:"type"`
	Class string `yaml:"class"`
}

type yamlAnswer struct {
	Name    string `yaml:"name"`
	Type    string `yaml:"type"`
	Class   string `yaml:"class"`
	TTL     uint32 `yaml:"ttl"`
	Address string `yaml:"address,omitempty"`
	Error   string `yaml:"error,omitempty"`
}

// printReply writes the reply and reports whether it contained at least
// one valid address of the requested type.
func printReply(w io.Writer, cfg *config.AppConfig, qtype uint16, reply *dnswire.Reply) (bool, error) {
	found := false
	for _, rr := range reply.Answers {
		if rr.Err == nil && rr.Type == qtype {
			found = true
		}
	}

	switch cfg.Output {
	case "yaml":
		doc := yamlReply{
			Server: dnswire.ServerAddress(cfg.Server),
			Header: yamlHeader{
				ID:                 reply.Header.ID,
				Rcode:              dns.RcodeToString[int(reply.Header.Rcode)],
				Authoritative:      reply.Header.Authoritative,
				Truncated:          reply.Header.Truncated,
				RecursionAvailable: reply.Header.RecursionAvailable,
			},
			Question: yamlQuestion{
				Name:  reply.Question.Name,
				Type:  dns.Type(reply.Question.Type).String(),
				Class: dns.Class(reply.Question.Class).String(),
			},
			Answers: make([]yamlAnswer, 0, len(reply.Answers)),
		}
		for _, rr := range reply.Answers {
			answer := yamlAnswer{
				Name:    rr.Name,
				Type:    dns.Type(rr.Type).String(),
				Class:   dns.Class(rr.Class).String(),
				TTL:     rr.TTL,
				Address: rr.Address,
			}
			if rr.Err != nil {
				answer.Error = rr.Err.Error()
			}
			doc.Answers = append(doc.Answers, answer)
		}
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return false, err
		}
		return found, enc.Close()

	default:
		for _, rr := range reply.Answers {
			if rr.Err != nil || rr.Type != qtype {
				continue
			}
			family := "IPv4"
			if rr.Type == dns.TypeAAAA {
				family = "IPv6"
			}
			if _, err := fmt.Fprintf(w, "%s has %s address %s\n", rr.Name, family, rr.Address); err != nil {
				return false, err
			}
		}
		return found, nil
	}
}
