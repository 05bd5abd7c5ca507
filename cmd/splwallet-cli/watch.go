package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/gorilla/websocket"

	"github.com/Klingon-tech/splwallet/internal/session"
)

// wsURL turns the API URL into its /ws feed URL.
func wsURL(rpcURL string) string {
	u := strings.TrimSuffix(rpcURL, "/")
	switch {
	case strings.HasPrefix(u, "https://"):
		u = "wss://" + strings.TrimPrefix(u, "https://")
	case strings.HasPrefix(u, "http://"):
		u = "ws://" + strings.TrimPrefix(u, "http://")
	}
	return u + "/ws"
}

// cmdWatch prints session events until interrupted or the daemon goes away.
func cmdWatch(rpcURL string) {
	conn, _, err := websocket.DefaultDialer.Dial(wsURL(rpcURL), nil)
	if err != nil {
		fatal("connect to event feed: %v", err)
	}
	defer conn.Close()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		conn.Close()
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				return
			}
			fmt.Fprintf(os.Stderr, "feed closed: %v\n", err)
			return
		}
		var ev session.Event
		if err := json.Unmarshal(data, &ev); err != nil {
			continue
		}
		fmt.Println(describeEvent(&ev))
	}
}

// describeEvent renders an event as one line.
func describeEvent(ev *session.Event) string {
	if ev.Type == session.Acknowledged && ev.Ack != nil {
		return fmt.Sprintf("[%s] %s (%s)", ev.Ack.Operation, ev.Ack.Message, ev.Ack.Signature)
	}
	st := ev.State
	var b strings.Builder
	if st.Connected {
		fmt.Fprintf(&b, "[state] %s  %s SOL  %d tokens", st.Account, st.Balance, len(st.Holdings))
	} else {
		b.WriteString("[state] not connected")
	}
	if st.Pending {
		b.WriteString("  pending")
	}
	if st.Error != "" {
		fmt.Fprintf(&b, "  error: %s", st.Error)
	}
	return b.String()
}
