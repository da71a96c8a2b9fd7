package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/gorilla/websocket"

	"railgrid.dev/internal/protocol"
)

// A small smoke client: connects, lays a stretch of track with signals
// on it, then converts it, printing every RESULT.
func main() {
	var (
		url     = flag.String("url", "ws://localhost:8080/v1/ws", "ws url")
		company = flag.Int("company", 0, "company to act as")
		x       = flag.Int("x", 10, "start tile x")
		y       = flag.Int("y", 10, "start tile y")
		length  = flag.Int("length", 20, "track length in tiles")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[bot] ", log.LstdFlags|log.Lmicroseconds)
	conn, _, err := websocket.DefaultDialer.Dial(*url, nil)
	if err != nil {
		logger.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	hello := protocol.HelloMsg{
		Type:            protocol.TypeHello,
		ProtocolVersion: protocol.Version,
		ClientName:      "bot",
		Company:         uint8(*company),
	}
	if err := conn.WriteJSON(hello); err != nil {
		logger.Fatalf("send HELLO: %v", err)
	}

	_, msg, err := conn.ReadMessage()
	if err != nil {
		logger.Fatalf("read WELCOME: %v", err)
	}
	var welcome protocol.WelcomeMsg
	if err := json.Unmarshal(msg, &welcome); err != nil {
		logger.Fatalf("decode WELCOME: %v", err)
	}
	logger.Printf("WELCOME session=%s world=%dx%d rail_types=%v",
		welcome.SessionID, welcome.WorldParams.SizeX, welcome.WorldParams.SizeY, welcome.WorldParams.RailTypes)

	end := [2]int{*x + *length - 1, *y}
	cmds := []protocol.CmdMsg{
		{
			Type: protocol.TypeCmd, ProtocolVersion: protocol.Version,
			ID: "c1", Cmd: protocol.CmdBuildTrackLine, Company: uint8(*company),
			Tile: [2]int{*x, *y}, End: &end,
			Track: "X", RailType: welcome.WorldParams.RailTypes[0],
		},
		{
			Type: protocol.TypeCmd, ProtocolVersion: protocol.Version,
			ID: "c2", Cmd: protocol.CmdBuildSignalLine, Company: uint8(*company),
			Tile: [2]int{*x, *y}, End: &end,
			Track:  "X",
			Signal: &protocol.SignalParams{SigType: "PBS", Variant: "ELECTRIC", Density: 4},
		},
		{
			Type: protocol.TypeCmd, ProtocolVersion: protocol.Version,
			ID: "c3", Cmd: protocol.CmdConvertRail, Company: uint8(*company),
			Tile: [2]int{*x, *y}, End: &end,
			RailType: secondLabel(welcome.WorldParams.RailTypes),
			Options:  &protocol.CmdOptions{},
		},
	}

	for _, c := range cmds {
		if err := conn.WriteJSON(c); err != nil {
			logger.Fatalf("send %s: %v", c.ID, err)
		}
		_, msg, err := conn.ReadMessage()
		if err != nil {
			logger.Fatalf("read RESULT: %v", err)
		}
		var res protocol.ResultMsg
		if err := json.Unmarshal(msg, &res); err != nil {
			logger.Fatalf("decode RESULT: %v", err)
		}
		status := "ok"
		if !res.OK {
			status = fmt.Sprintf("failed code=%s msg=%q", res.Code, res.Message)
		}
		warn := ""
		if res.Warn != "" {
			warn = " warn=" + res.Warn
		}
		logger.Printf("%s %s: %s cost=%d%s", res.Ref, c.Cmd, status, res.Cost, warn)
	}
}

func secondLabel(labels []string) string {
	if len(labels) > 1 {
		return labels[1]
	}
	if len(labels) == 1 {
		return labels[0]
	}
	return ""
}
