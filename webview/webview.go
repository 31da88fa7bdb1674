// Package webview serves a compiled register file model over HTTP,
// for inspecting address maps, registers and decoders from a browser
// or scripts.
package webview

import (
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"os"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/pkg/browser"

	"github.com/abs-tudelft/vhdmmio-sub000/addr"
	"github.com/abs-tudelft/vhdmmio-sub000/regfile"
)

// A Viewer serves one compiled register file.
type Viewer struct {
	compiled    *regfile.Compiled
	portNumber  int
	openBrowser bool
}

// NewViewer creates a viewer for the given register file.
func NewViewer(compiled *regfile.Compiled) *Viewer {
	return &Viewer{compiled: compiled}
}

// SetPort requests a fixed listening port. Without it an arbitrary
// free port is picked.
func (v *Viewer) SetPort(port int) {
	v.portNumber = port
}

// OpenBrowser makes StartServer open the served page in the default
// browser.
func (v *Viewer) OpenBrowser() {
	v.openBrowser = true
}

type fieldView struct {
	Name     string `json:"name"`
	High     int    `json:"high"`
	Low      int    `json:"low"`
	Readable bool   `json:"readable"`
	Writable bool   `json:"writable"`
}

type blockView struct {
	Name    string `json:"name"`
	Index   int    `json:"index"`
	Address string `json:"address"`
	Bits    string `json:"bits"`
}

type registerView struct {
	Name       string      `json:"name"`
	Width      int         `json:"width"`
	BusWidth   int         `json:"bus-width"`
	Endianness string      `json:"endianness"`
	Readable   bool        `json:"readable"`
	Writable   bool        `json:"writable"`
	Blocks     []blockView `json:"blocks"`
	Fields     []fieldView `json:"fields"`
}

type regFileView struct {
	Name         string         `json:"name"`
	ID           string         `json:"id"`
	AddressWidth int            `json:"address-width"`
	Registers    []registerView `json:"registers"`
}

// Router returns the HTTP routes of the viewer.
func (v *Viewer) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/api/regfile", v.serveRegFile)
	r.HandleFunc("/api/register/{name}", v.serveRegister)
	r.HandleFunc("/api/decoder/{direction}", v.serveDecoder)
	r.HandleFunc("/", v.serveIndex)
	return r
}

// StartServer starts serving in the background and returns the port
// it listens on.
func (v *Viewer) StartServer() int {
	actualPort := ":0"
	if v.portNumber > 1000 {
		actualPort = ":" + strconv.Itoa(v.portNumber)
	}

	listener, err := net.Listen("tcp", actualPort)
	dieOnErr(err)

	port := listener.Addr().(*net.TCPAddr).Port
	url := fmt.Sprintf("http://localhost:%d", port)
	fmt.Fprintf(os.Stderr, "Serving register file on %s\n", url)

	if v.openBrowser {
		err := browser.OpenURL(url)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Cannot open browser: %s\n", err)
		}
	}

	go func() {
		dieOnErr(http.Serve(listener, v.Router()))
	}()

	return port
}

func (v *Viewer) view() regFileView {
	view := regFileView{
		Name:         v.compiled.Name(),
		ID:           v.compiled.ID(),
		AddressWidth: v.compiled.AddressWidth(),
	}
	for _, register := range v.compiled.Registers() {
		view.Registers = append(view.Registers, v.registerView(register.Name()))
	}
	return view
}

func (v *Viewer) registerView(name string) registerView {
	width := v.compiled.AddressWidth()
	for _, register := range v.compiled.Registers() {
		if register.Name() != name {
			continue
		}
		view := registerView{
			Name:       register.Name(),
			Width:      register.Width(),
			BusWidth:   register.BusWidth(),
			Endianness: register.Endianness().String(),
			Readable:   register.Caps(addr.Read) != nil,
			Writable:   register.Caps(addr.Write) != nil,
		}
		for _, block := range register.Blocks() {
			view.Blocks = append(view.Blocks, blockView{
				Name:    block.Name,
				Index:   block.Index,
				Address: block.Pattern.Render(width),
				Bits:    block.Pattern.BitString(width),
			})
		}
		for _, field := range register.Fields() {
			view.Fields = append(view.Fields, fieldView{
				Name:     field.Name,
				High:     field.High,
				Low:      field.Low,
				Readable: field.Caps.Read != nil,
				Writable: field.Caps.Write != nil,
			})
		}
		return view
	}
	return registerView{}
}

func (v *Viewer) serveRegFile(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, v.view())
}

func (v *Viewer) serveRegister(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	view := v.registerView(name)
	if view.Name == "" {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	writeJSON(w, view)
}

func (v *Viewer) serveDecoder(w http.ResponseWriter, r *http.Request) {
	var direction addr.Direction
	switch mux.Vars(r)["direction"] {
	case "read":
		direction = addr.Read
	case "write":
		direction = addr.Write
	default:
		w.WriteHeader(http.StatusNotFound)
		return
	}

	lines, err := v.compiled.RenderDecoder(direction, "address")
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	writeJSON(w, lines)
}

func (v *Viewer) serveIndex(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprintf(w, "<html><head><title>%s</title></head><body>",
		v.compiled.Name())
	fmt.Fprintf(w, "<h1>Register file %s</h1><table border=\"1\">",
		v.compiled.Name())
	fmt.Fprint(w, "<tr><th>Register</th><th>Address</th><th>Fields</th></tr>")
	width := v.compiled.AddressWidth()
	for _, register := range v.compiled.Registers() {
		fmt.Fprint(w, "<tr><td>", register.Name(), "</td><td>")
		for i, block := range register.Blocks() {
			if i > 0 {
				fmt.Fprint(w, ", ")
			}
			fmt.Fprint(w, block.Pattern.Render(width))
		}
		fmt.Fprint(w, "</td><td>")
		for i, field := range register.Fields() {
			if i > 0 {
				fmt.Fprint(w, ", ")
			}
			fmt.Fprintf(w, "%s[%d:%d]", field.Name, field.High, field.Low)
		}
		fmt.Fprint(w, "</td></tr>")
	}
	fmt.Fprint(w, "</table></body></html>")
}

func writeJSON(w http.ResponseWriter, value any) {
	w.Header().Set("Content-Type", "application/json")
	dieOnErr(json.NewEncoder(w).Encode(value))
}

func dieOnErr(err error) {
	if err != nil {
		panic(err)
	}
}
