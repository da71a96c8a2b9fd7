package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/klauspost/compress/zstd"

	"railgrid.dev/internal/sim/world"
)

// Replays the audit trail of a world: decodes the compressed JSONL
// audit logs in order and prints or summarizes the committed commands.
func main() {
	var (
		auditDir = flag.String("audit", "", "audit dir containing audit-*.jsonl.zst")
		company  = flag.Int("company", -1, "filter to one company (-1 = all)")
		cmd      = flag.String("cmd", "", "filter to one command name")
		summary  = flag.Bool("summary", false, "print per-command totals instead of entries")
	)
	flag.Parse()

	if *auditDir == "" {
		fmt.Fprintln(os.Stderr, "missing -audit")
		os.Exit(2)
	}

	files, err := listAuditFiles(*auditDir)
	if err != nil {
		fmt.Fprintln(os.Stderr, "list audit files:", err)
		os.Exit(1)
	}
	if len(files) == 0 {
		fmt.Fprintln(os.Stderr, "no audit files in", *auditDir)
		os.Exit(1)
	}

	type stat struct {
		count int
		cost  int64
	}
	totals := map[string]*stat{}
	entries := 0

	for _, path := range files {
		if err := readAuditFile(path, func(e world.AuditEntry) {
			if *company >= 0 && int(e.Company) != *company {
				return
			}
			if *cmd != "" && e.Cmd != *cmd {
				return
			}
			entries++
			if *summary {
				s := totals[e.Cmd]
				if s == nil {
					s = &stat{}
					totals[e.Cmd] = s
				}
				s.count++
				s.cost += e.Cost
				return
			}
			line, _ := json.Marshal(e)
			fmt.Println(string(line))
		}); err != nil {
			fmt.Fprintln(os.Stderr, path+":", err)
			os.Exit(1)
		}
	}

	if *summary {
		cmds := make([]string, 0, len(totals))
		for k := range totals {
			cmds = append(cmds, k)
		}
		sort.Strings(cmds)
		for _, k := range cmds {
			fmt.Printf("%-22s count=%-8d cost=%d\n", k, totals[k].count, totals[k].cost)
		}
	}
	fmt.Fprintf(os.Stderr, "%d entries from %d files\n", entries, len(files))
}

func listAuditFiles(dir string) ([]string, error) {
	ents, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, e := range ents {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, "audit-") || !strings.HasSuffix(name, ".jsonl.zst") {
			continue
		}
		files = append(files, filepath.Join(dir, name))
	}
	// Hourly rotation embeds the timestamp in the name, so lexical order
	// is chronological order.
	sort.Strings(files)
	return files, nil
}

func readAuditFile(path string, fn func(world.AuditEntry)) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return err
	}
	defer dec.Close()

	sc := bufio.NewScanner(dec)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		var e world.AuditEntry
		if err := json.Unmarshal([]byte(line), &e); err != nil {
			return fmt.Errorf("bad entry: %w", err)
		}
		fn(e)
	}
	return sc.Err()
}
