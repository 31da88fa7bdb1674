package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/abs-tudelft/vhdmmio-sub000/addr"
	"github.com/abs-tudelft/vhdmmio-sub000/recording"
	"github.com/abs-tudelft/vhdmmio-sub000/regfile"
	"github.com/abs-tudelft/vhdmmio-sub000/webview"
)

var compileCmd = &cobra.Command{
	Use:   "compile [config file]",
	Short: "Compile a register file description.",
	Long: "`compile config.json` checks the register file description " +
		"for conflicts and prints a summary of the address map. The " +
		"compiled model can be dumped to a database with --record, " +
		"rendered as address decoders with --decoders, or served over " +
		"HTTP with --serve.",
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		config, err := regfile.LoadConfig(args[0])
		if err != nil {
			log.Fatalf("Error loading config: %v", err)
		}

		if optimize, _ := cmd.Flags().GetBool("optimize"); optimize {
			config.Optimize = true
		}

		compiled, err := regfile.Compile(config, nil)
		if err != nil {
			log.Fatalf("Error (%s): %v", regfile.Category(err), err)
		}

		printSummary(compiled)

		if recordPath, _ := cmd.Flags().GetString("record"); recordPath != "" {
			recorder := recording.NewRecorder(recordPath)
			recording.RecordCompiled(recorder, compiled)
			fmt.Printf("Model recorded to %s\n", recordPath)
		}

		if decoders, _ := cmd.Flags().GetBool("decoders"); decoders {
			printDecoders(compiled)
		}

		if serve, _ := cmd.Flags().GetBool("serve"); serve {
			serveModel(cmd, compiled)
		}
	},
}

func init() {
	rootCmd.AddCommand(compileCmd)
	compileCmd.Flags().Bool("optimize", false,
		"Omit decoder checks for addresses that cannot occur")
	compileCmd.Flags().String("record", "",
		"Record the compiled model to the given SQLite database")
	compileCmd.Flags().Bool("decoders", false,
		"Print the read and write address decoders")
	compileCmd.Flags().Bool("serve", false,
		"Serve the compiled model over HTTP")
	compileCmd.Flags().Int("port", 0,
		"Port to serve on (default a free port, or $VHDMMIO_PORT)")
	compileCmd.Flags().Bool("browser", false,
		"Open the served page in the default browser")
}

func printSummary(compiled *regfile.Compiled) {
	width := compiled.AddressWidth()
	fmt.Printf("Register file %s (%s), %d-bit addresses\n",
		compiled.Name(), compiled.ID(), width)
	for _, register := range compiled.Registers() {
		for _, block := range register.Blocks() {
			access := ""
			if register.Caps(addr.Read) != nil {
				access += "R"
			}
			if register.Caps(addr.Write) != nil {
				access += "W"
			}
			fmt.Printf("  %-10s %-24s %s\n",
				block.Pattern.Render(width), block.Name, access)
		}
	}
}

func printDecoders(compiled *regfile.Compiled) {
	for _, direction := range []addr.Direction{addr.Read, addr.Write} {
		lines, err := compiled.RenderDecoder(direction, "address")
		if err != nil {
			log.Fatalf("Error rendering %s decoder: %v", direction, err)
		}
		fmt.Printf("\n-- %s decoder\n", direction)
		for _, line := range lines {
			fmt.Println(line)
		}
	}
}

func serveModel(cmd *cobra.Command, compiled *regfile.Compiled) {
	viewer := webview.NewViewer(compiled)

	port, _ := cmd.Flags().GetInt("port")
	if port == 0 {
		if env, err := strconv.Atoi(os.Getenv("VHDMMIO_PORT")); err == nil {
			port = env
		}
	}
	if port != 0 {
		viewer.SetPort(port)
	}
	if open, _ := cmd.Flags().GetBool("browser"); open {
		viewer.OpenBrowser()
	}

	viewer.StartServer()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)
	<-interrupt
}
