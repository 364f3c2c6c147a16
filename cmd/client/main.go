// Command client is a small terminal client for the chat server. It
// translates slash commands into protocol lines and renders pushes as
// they arrive; anything that is not a slash command is sent raw, which
// is handy for poking at the protocol directly.
package main

import (
	"bufio"
	"fmt"
	"net"
	"os"
	"strings"

	"github.com/gookit/color"
	"github.com/kelseyhightower/envconfig"
	"github.com/olekukonko/tablewriter"
)

type Config struct {
	Host    string `envconfig:"CHAT_HOST" default:"localhost"`
	Port    int    `envconfig:"CHAT_PORT" default:"9000"`
	Colours bool   `envconfig:"CHAT_COLOURS" default:"true"`
}

func main() {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(2)
	}
	if !cfg.Colours {
		color.Disable()
	}

	conn, err := net.Dial("tcp", fmt.Sprintf("%s:%d", cfg.Host, cfg.Port))
	if err != nil {
		fmt.Fprintf(os.Stderr, "connection failed: %v\n", err)
		os.Exit(1)
	}
	defer conn.Close()
	fmt.Printf("connected to %s\n", conn.RemoteAddr())

	done := make(chan struct{})
	go readLoop(conn, done)

	stdin := bufio.NewScanner(os.Stdin)
	for stdin.Scan() {
		line, quit := translate(stdin.Text())
		if quit {
			fmt.Fprintf(conn, "LOGOUT\n")
			break
		}
		if line == "" {
			continue
		}
		if _, err := fmt.Fprintf(conn, "%s\n", line); err != nil {
			fmt.Fprintf(os.Stderr, "send failed: %v\n", err)
			break
		}
	}
	<-done
}

// translate maps a REPL input to one protocol line. The second return
// is true for /quit.
func translate(input string) (string, bool) {
	input = strings.TrimSpace(input)
	if input == "" || !strings.HasPrefix(input, "/") {
		return input, false
	}

	fields := strings.SplitN(input, " ", 3)
	switch fields[0] {
	case "/register":
		if len(fields) == 3 {
			return fmt.Sprintf("REGISTER|%s::%s", fields[1], fields[2]), false
		}
	case "/login":
		if len(fields) == 3 {
			return fmt.Sprintf("LOGIN|%s::%s", fields[1], fields[2]), false
		}
	case "/msg":
		if len(fields) == 3 {
			return fmt.Sprintf("MSG|TO::%s|%s", fields[1], fields[2]), false
		}
	case "/gmsg":
		if len(fields) == 3 {
			return fmt.Sprintf("MSG|GROUP::%s|%s", fields[1], fields[2]), false
		}
	case "/create":
		if len(fields) >= 2 {
			return "CREATE_GROUP|" + strings.Join(fields[1:], " "), false
		}
	case "/join":
		if len(fields) == 2 {
			return "JOIN_GROUP|" + fields[1], false
		}
	case "/history":
		if len(fields) == 2 {
			return "HISTORY_PRIVATE|" + fields[1], false
		}
	case "/ghistory":
		if len(fields) == 2 {
			return "HISTORY_GROUP|" + fields[1], false
		}
	case "/users":
		return "GET_USERS", false
	case "/search":
		if len(fields) >= 2 {
			return "SEARCH|" + strings.Join(fields[1:], " "), false
		}
	case "/quit":
		return "", true
	}
	color.Yellow.Println("usage: /register /login /msg /gmsg /create /join /history /ghistory /users /search /quit")
	return "", false
}

func readLoop(conn net.Conn, done chan<- struct{}) {
	defer close(done)

	var roster []string
	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		line := scanner.Text()
		parts := strings.SplitN(line, "|", 4)

		switch parts[0] {
		case "USER":
			if len(parts) > 1 {
				roster = append(roster, parts[1])
			}
		case "USER_END":
			renderRoster(roster)
			roster = nil
		case "INCOMING_PRIVATE":
			if len(parts) >= 3 {
				color.Green.Printf("%s: %s\n", parts[1], strings.Join(parts[2:], "|"))
			}
		case "INCOMING_GROUP":
			if len(parts) >= 4 {
				color.Cyan.Printf("[group %s] %s: %s\n", parts[1], parts[2], parts[3])
			}
		case "HISTORY_PRIVATE_LINE", "HISTORY_GROUP_LINE", "SEARCH_LINE":
			if len(parts) > 1 {
				fmt.Println(strings.Join(parts[1:], "|"))
			}
		case "ERR":
			color.Red.Println(line)
		default:
			fmt.Println(line)
		}
	}
	fmt.Println("disconnected")
}

func renderRoster(roster []string) {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Username"})
	table.SetBorder(false)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	for _, name := range roster {
		table.Append([]string{name})
	}
	table.Render()
}
