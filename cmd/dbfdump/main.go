// Command dbfdump prints the header and rows of a dBASE file as tab-separated text.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	godbf "github.com/Ulysses-Xu/go-dbfreader"
	"github.com/Ulysses-Xu/go-dbfreader/internal/config"
	"github.com/Ulysses-Xu/go-dbfreader/internal/logger"
)

func main() {
	var (
		configPath string
		encoding   string
		deleted    bool
		resync     bool
	)
	flag.StringVar(&configPath, "config", "", "path to an INI config file")
	flag.StringVar(&encoding, "encoding", "", "text encoding, overrides the config file")
	flag.BoolVar(&deleted, "deleted", true, "print rows marked deleted")
	flag.BoolVar(&resync, "resync", false, "skip records with an unknown marker")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: dbfdump [flags] file.dbf")
		flag.PrintDefaults()
		os.Exit(2)
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if encoding != "" {
		cfg.Encoding = encoding
	}
	if !deleted {
		cfg.SkipDeleted = true
	}
	if resync {
		cfg.Resync = true
	}

	log, logFile, err := logger.New(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	readerCfg := cfg.ReaderConfig()
	readerCfg.Logger = log
	err = dump(os.Stdout, flag.Arg(0), readerCfg)
	if err != nil {
		log.WithError(err).Error("dump failed")
	}
	logFile.Close()
	if err != nil {
		os.Exit(1)
	}
}

func dump(out io.Writer, fileName string, cfg *godbf.Config) error {
	dbf, err := godbf.Open(fileName, cfg)
	if err != nil {
		return err
	}
	defer dbf.Close()

	w := bufio.NewWriter(out)
	defer w.Flush()

	header := dbf.Header()
	fmt.Fprintf(w, "# version=0x%02X updated=%s records=%d encoding=%s\n",
		header.Version, header.LastUpdate().Format("2006-01-02"), header.NumRecords, dbf.Encoding())
	for _, f := range header.Fields {
		fmt.Fprintf(w, "# %s %c(%d,%d) %s\n", f.Name, f.Tag, f.Length, f.Decimals, f.Type)
	}
	fmt.Fprintln(w, strings.Join(header.Columns(), "\t"))

	for {
		row, err := dbf.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		fmt.Fprintln(w, formatRow(row))
	}
}

// formatRow renders typed values, falling back to the trimmed text of fields
// whose typed value cannot be decoded.
func formatRow(row *godbf.Row) string {
	cells := make([]string, len(row.Fields))
	for i, f := range row.Fields {
		v, err := f.Value()
		switch {
		case err != nil:
			cells[i] = strings.TrimSpace(f.String())
		case v.Interface() == nil:
			cells[i] = ""
		default:
			cells[i] = formatValue(v)
		}
	}
	line := strings.Join(cells, "\t")
	if row.Deleted {
		return "*" + line
	}
	return line
}

func formatValue(v godbf.Value) string {
	switch v := v.(type) {
	case godbf.Date:
		return v.Format("2006-01-02")
	case godbf.Decimal:
		return v.String()
	}
	return fmt.Sprint(v.Interface())
}
