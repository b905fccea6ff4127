package interpreter

import (
	"net/url"
	"os"
	"os/signal"
	"time"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
)

// Reconnect policy for StartListener. A run of maxRetries failed dials gives up.
var (
	maxRetries     = 10
	baseRetryDelay = 2 * time.Second
	maxRetryDelay  = 60 * time.Second
)

// Manage websocket connection to the interpreter API and call funcToCall for each reading.
// Returns on interrupt or once the API stays unreachable.
func StartListener(host string, tlsEnabled bool, funcToCall func(reading *Reading)) {
	scheme := "ws"
	if tlsEnabled {
		scheme = "wss"
	}
	u := url.URL{Scheme: scheme, Host: host, Path: "/ws"}

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)
	defer signal.Stop(interrupt)

	retryCount := 0

	for {
		select {
		case <-interrupt:
			log.Println("Interrupt received, shutting down...")
			return
		default:
			if retryCount > 0 {
				retryDelay := backoffDelay(retryCount)
				log.Printf("Retrying connection in %v... (attempt %d/%d)", retryDelay, retryCount+1, maxRetries)
				select {
				case <-time.After(retryDelay):
				case <-interrupt:
					log.Println("Interrupt received during retry wait, shutting down...")
					return
				}
			}

			log.Printf("Connecting to %s", u.String())

			dialer := *websocket.DefaultDialer
			dialer.HandshakeTimeout = 10 * time.Second
			c, _, err := dialer.Dial(u.String(), nil)
			if err != nil {
				log.Printf("Connection failed: %v", err)
				retryCount++
				if retryCount >= maxRetries {
					log.Errorf("Max retries (%d) reached. Giving up.", maxRetries)
					return
				}
				continue
			}

			log.Println("Connected! Accepting multimeter readings.")
			retryCount = 0

			connectionBroken := handleConnection(c, interrupt, funcToCall)
			c.Close()

			if !connectionBroken {
				return
			}

			log.Warn("Connection lost, will retry...")
		}
	}
}

// backoffDelay doubles from baseRetryDelay per failed attempt, capped at maxRetryDelay.
func backoffDelay(retryCount int) time.Duration {
	if retryCount >= 30 {
		return maxRetryDelay
	}
	return min(time.Duration(1<<retryCount)*baseRetryDelay, maxRetryDelay)
}

func handleConnection(
	c *websocket.Conn,
	interrupt chan os.Signal,
	funcToCall func(reading *Reading),
) bool {
	done := make(chan struct{})

	// Pongs keep an idle link alive while the meter is switched off
	const readTimeout = 75 * time.Second
	c.SetReadDeadline(time.Now().Add(readTimeout))
	c.SetPongHandler(func(string) error {
		return c.SetReadDeadline(time.Now().Add(readTimeout))
	})

	go func() {
		defer close(done)
		for {
			messageType, message, err := c.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
					log.Printf("WebSocket error: %v", err)
				} else {
					log.Printf("Connection closed: %v", err)
				}
				return
			}

			c.SetReadDeadline(time.Now().Add(readTimeout))

			if messageType != websocket.TextMessage {
				log.Printf("Received unexpected message type: %d", messageType)
				continue
			}
			if reading := ReadingFromJsonBytes(message); reading != nil {
				funcToCall(reading)
			} else {
				log.Printf("Failed to parse reading: %s", string(message))
			}
		}
	}()

	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	go func() {
		for {
			select {
			case <-ticker.C:
				if err := c.WriteMessage(websocket.PingMessage, []byte{}); err != nil {
					log.Printf("Failed to send ping: %v", err)
					return
				}
			case <-done:
				return
			}
		}
	}()

	select {
	case <-done:
		return true
	case <-interrupt:
		log.Println("Interrupt received, closing connection...")

		err := c.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		if err != nil {
			log.Println("Error sending close message:", err)
		}

		select {
		case <-done:
		case <-time.After(time.Second):
		}
		return false
	}
}
