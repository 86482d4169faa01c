package main

import (
	"fmt"
	"io/ioutil"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"text/tabwriter"

	"github.com/bodgit/psxtim"
	"github.com/bodgit/psxtim/tim"
	"github.com/urfave/cli/v2"
)

const defaultDB = "psxtim.db"

func init() {
	cli.VersionFlag = &cli.BoolFlag{
		Name:    "version",
		Aliases: []string{"V"},
		Usage:   "print the version",
	}
}

func newLogger(c *cli.Context) *log.Logger {
	logger := log.New(ioutil.Discard, "", 0)
	if c.Bool("verbose") {
		logger.SetOutput(os.Stderr)
	}
	return logger
}

func needArgs(c *cli.Context, n int) {
	if c.NArg() < n {
		cli.ShowCommandHelpAndExit(c, c.Command.Name, 1)
	}
}

func withCatalog(c *cli.Context, fn func(*psxtim.Tool) error) error {
	db, err := psxtim.NewCatalog(c.String("db"))
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	defer db.Close()

	if err := fn(psxtim.New(db, newLogger(c))); err != nil {
		return cli.NewExitError(err, 1)
	}
	return nil
}

func scan(c *cli.Context) error {
	needArgs(c, 1)

	t := psxtim.New(nil, newLogger(c))
	b, err := t.Load(c.Args().First())
	if err != nil {
		return cli.NewExitError(err, 1)
	}

	records := tim.Scan(b)
	if len(records) == 0 {
		fmt.Println("No records found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 8, 1, ' ', 0)
	fmt.Fprintln(w, "NAME\tOFFSET\tLENGTH\tMODE\tSIZE\tCLUTS\tSTATUS")
	for i, r := range records {
		status := "ok"
		if err := r.Validate(); err != nil {
			status = err.Error()
		}
		var cluts int
		if r.Palette != nil {
			cluts = r.Palette.Rows()
		}
		size := r.Bounds()
		fmt.Fprintf(w, "%s\t%#08x\t%d\t%s\t%dx%d\t%d\t%s\n", tim.Name(i), r.Offset, r.Len(), r.Header.Mode, size.Dx(), size.Dy(), cluts, status)
	}
	return w.Flush()
}

func extract(c *cli.Context) error {
	needArgs(c, 2)

	format := c.String("format")
	if format == "none" {
		format = ""
	}

	t := psxtim.New(nil, newLogger(c))
	n, err := t.Extract(c.Args().Get(0), c.Args().Get(1), psxtim.ExtractOptions{
		Format:  format,
		CLUT:    c.Int("clut"),
		Workers: c.Int("workers"),
	})
	if err != nil {
		return cli.NewExitError(err, 1)
	}

	fmt.Printf("Extracted %d records to %s\n", n, c.Args().Get(1))
	return nil
}

func convert(c *cli.Context) error {
	needArgs(c, 2)

	t := psxtim.New(nil, newLogger(c))
	if err := t.Convert(c.Args().Get(0), c.Args().Get(1), c.Int("clut")); err != nil {
		return cli.NewExitError(err, 1)
	}
	return nil
}

func importImage(c *cli.Context) error {
	needArgs(c, 2)

	mode, err := tim.ParseMode(c.String("mode"))
	if err != nil {
		return cli.NewExitError(err, 1)
	}

	t := psxtim.New(nil, newLogger(c))
	if err := t.Import(c.Args().Get(0), c.Args().Get(1), &tim.Options{
		Mode:  mode,
		X:     uint16(c.Uint("x")),
		Y:     uint16(c.Uint("y")),
		CLUTX: uint16(c.Uint("clut-x")),
		CLUTY: uint16(c.Uint("clut-y")),
	}); err != nil {
		return cli.NewExitError(err, 1)
	}
	return nil
}

func repack(c *cli.Context) error {
	needArgs(c, 2)

	t := psxtim.New(nil, newLogger(c))
	rejected, err := t.Repack(c.Args().Get(0), c.String("replacements"), c.Args().Get(1), c.Bool("indexed"))
	if err != nil {
		return cli.NewExitError(err, 1)
	}

	for _, r := range rejected {
		fmt.Fprintf(os.Stderr, "Kept original %v\n", r)
	}
	return nil
}

func catalogAdd(c *cli.Context) error {
	needArgs(c, 1)

	return withCatalog(c, func(t *psxtim.Tool) error {
		for _, file := range c.Args().Slice() {
			id, n, err := t.Index(file)
			if err != nil {
				return err
			}
			fmt.Printf("%s\t%d records\t%s\n", id, n, file)
		}
		return nil
	})
}

func catalogList(c *cli.Context) error {
	db, err := psxtim.NewCatalog(c.String("db"))
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	defer db.Close()

	w := tabwriter.NewWriter(os.Stdout, 0, 8, 1, ' ', 0)

	if c.NArg() == 0 {
		sources, err := db.Sources()
		if err != nil {
			return cli.NewExitError(err, 1)
		}
		fmt.Fprintln(w, "ID\tSHA1\tSIZE\tRECORDS\tPATH")
		for _, s := range sources {
			fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%s\n", s.ID, s.SHA1, s.Size, s.Records, s.Path)
		}
		return w.Flush()
	}

	entries, err := db.Entries(c.Args().First())
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	fmt.Fprintln(w, "NAME\tOFFSET\tLENGTH\tMODE\tSIZE\tVALID\tSHA1")
	for _, e := range entries {
		fmt.Fprintf(w, "%s\t%#08x\t%d\t%s\t%dx%d\t%t\t%s\n", tim.Name(e.Index), e.Offset, e.Length, e.Mode, e.Width, e.Height, e.Valid, e.SHA1)
	}
	return w.Flush()
}

func catalogGet(c *cli.Context) error {
	needArgs(c, 3)

	i, err := strconv.Atoi(c.Args().Get(1))
	if err != nil {
		return cli.NewExitError(err, 1)
	}

	return withCatalog(c, func(t *psxtim.Tool) error {
		return t.Fetch(c.Args().Get(0), i, c.Args().Get(2))
	})
}

func clutFlag() cli.Flag {
	return &cli.IntFlag{
		Name:  "clut",
		Value: -1,
		Usage: "CLUT row to use as the palette, -1 for the whole CLUT",
	}
}

func main() {
	app := cli.NewApp()

	app.Name = "psxtim"
	app.Usage = "PlayStation TIM texture extraction utility"
	app.Version = "1.0.0"

	cwd, err := os.Getwd()
	if err != nil {
		log.Fatal(err)
	}

	app.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:    "db",
			EnvVars: []string{"PSXTIM_DB"},
			Value:   filepath.Join(cwd, defaultDB),
			Usage:   "path to catalog database",
		},
		&cli.BoolFlag{
			Name:    "verbose",
			Aliases: []string{"v"},
			Usage:   "increase verbosity",
		},
	}

	app.Commands = []*cli.Command{
		{
			Name:      "scan",
			Usage:     "List TIM records in a file or CD image",
			ArgsUsage: "FILE",
			Action:    scan,
		},
		{
			Name:      "extract",
			Usage:     "Extract TIM records and render them as images",
			ArgsUsage: "FILE DIRECTORY",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:  "format",
					Value: "png",
					Usage: "image format, one of png, bmp or none",
				},
				clutFlag(),
				&cli.IntFlag{
					Name:  "workers",
					Value: 4,
					Usage: "number of records decoded concurrently",
				},
			},
			Action: extract,
		},
		{
			Name:      "convert",
			Usage:     "Render a TIM record as a PNG or BMP image",
			ArgsUsage: "FILE IMAGE",
			Flags:     []cli.Flag{clutFlag()},
			Action:    convert,
		},
		{
			Name:      "import",
			Usage:     "Convert an image to a TIM record",
			ArgsUsage: "IMAGE FILE",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:  "mode",
					Value: tim.Direct16.String(),
					Usage: "pixel mode, one of 4bpp, 8bpp, 16bpp or 24bpp",
				},
				&cli.UintFlag{Name: "x", Usage: "image VRAM x"},
				&cli.UintFlag{Name: "y", Usage: "image VRAM y"},
				&cli.UintFlag{Name: "clut-x", Usage: "CLUT VRAM x"},
				&cli.UintFlag{Name: "clut-y", Usage: "CLUT VRAM y"},
			},
			Action: importImage,
		},
		{
			Name:        "repack",
			Usage:       "Rebuild a container with replacement TIM records",
			Description: "Replacements are read from files named like the extracted records, e.g. tex_0000.tim",
			ArgsUsage:   "FILE OUTPUT",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:  "replacements",
					Usage: "directory of replacement records",
				},
				&cli.BoolFlag{
					Name:  "indexed",
					Usage: "container starts with an offset table",
				},
			},
			Action: repack,
		},
		{
			Name:  "catalog",
			Usage: "Maintain the catalog of scanned files",
			Subcommands: []*cli.Command{
				{
					Name:      "add",
					Usage:     "Scan files and add them to the catalog",
					ArgsUsage: "FILE...",
					Action:    catalogAdd,
				},
				{
					Name:      "list",
					Usage:     "List catalogued files, or the records of one",
					ArgsUsage: "[SOURCE]",
					Action:    catalogList,
				},
				{
					Name:      "get",
					Usage:     "Write a catalogued record to a file",
					ArgsUsage: "SOURCE INDEX FILE",
					Action:    catalogGet,
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
