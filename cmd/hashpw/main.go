package main

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/term"
)

const (
	minPasswordLength = 6
	// bcrypt ignores everything past 72 bytes.
	maxPasswordLength = 72
)

var (
	errMismatch = errors.New("passwords do not match")
	errTooShort = fmt.Errorf("password must be at least %d characters", minPasswordLength)
	errTooLong  = fmt.Errorf("password must not exceed %d bytes", maxPasswordLength)
)

func main() {
	command := "hash"
	if len(os.Args) > 1 {
		command = os.Args[1]
	}

	stdin := int(os.Stdin.Fd()) //nolint:gosec // file descriptors fit in int
	in := bufio.NewReader(os.Stdin)

	switch command {
	case "hash":
		if !runHash(in, stdin) {
			os.Exit(1)
		}
	case "verify":
		if len(os.Args) < 3 {
			printUsage()
			os.Exit(1)
		}
		if !runVerify(in, stdin, os.Args[2]) {
			os.Exit(1)
		}
	case "help", "-h", "--help":
		printUsage()
	default:
		// Sanitize command input using allowlist to break taint chain
		sanitized := sanitizeCommand(command)
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", sanitized) //nolint:gosec // G705 - input is sanitized via allowlist in sanitizeCommand
		printUsage()
		os.Exit(1)
	}
}

// sanitizeCommand returns a safe representation of a command string for display.
// It uses an allowlist approach, replacing any character that is not alphanumeric,
// a hyphen, or an underscore with '_'.
func sanitizeCommand(cmd string) string {
	var b strings.Builder
	b.Grow(len(cmd))
	for _, r := range cmd {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '-' || r == '_' {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}
	return b.String()
}

func printUsage() {
	fmt.Println("tubegate Password Hashing")
	fmt.Println("")
	fmt.Println("Usage: hashpw [command]")
	fmt.Println("")
	fmt.Println("Commands:")
	fmt.Println("  hash           - Prompt for a password and print its bcrypt hash (default)")
	fmt.Println("  verify <hash>  - Prompt for a password and check it against a hash")
	fmt.Println("")
	fmt.Println("Set the printed hash as ADMIN_PASSWORD_HASH.")
}

func runHash(in *bufio.Reader, fd int) bool {
	password, err := readPassword(in, fd, "New Password: ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading password: %v\n", err)
		return false
	}

	confirm := password
	if term.IsTerminal(fd) {
		confirm, err = readPassword(in, fd, "Confirm Password: ")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading password: %v\n", err)
			return false
		}
	}

	hash, err := hashPassword(password, confirm, bcrypt.DefaultCost)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return false
	}

	fmt.Println(string(hash))
	return true
}

func runVerify(in *bufio.Reader, fd int, hash string) bool {
	password, err := readPassword(in, fd, "Password: ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading password: %v\n", err)
		return false
	}

	if err := bcrypt.CompareHashAndPassword([]byte(hash), password); err != nil {
		fmt.Println("Password does NOT match.")
		return false
	}
	fmt.Println("Password matches.")
	return true
}

// readPassword prompts without echo on a terminal and reads one line
// otherwise, so the tool also works with piped input.
func readPassword(in *bufio.Reader, fd int, prompt string) ([]byte, error) {
	if term.IsTerminal(fd) {
		fmt.Fprint(os.Stderr, prompt)
		password, err := term.ReadPassword(fd)
		fmt.Fprintln(os.Stderr)
		return password, err
	}
	return readLine(in)
}

func readLine(in *bufio.Reader) ([]byte, error) {
	line, err := in.ReadBytes('\n')
	if err != nil && !(errors.Is(err, io.EOF) && len(line) > 0) {
		return nil, err
	}
	return bytes.TrimRight(line, "\r\n"), nil
}

func hashPassword(password, confirm []byte, cost int) ([]byte, error) {
	if !bytes.Equal(password, confirm) {
		return nil, errMismatch
	}
	if len(password) < minPasswordLength {
		return nil, errTooShort
	}
	if len(password) > maxPasswordLength {
		return nil, errTooLong
	}
	return bcrypt.GenerateFromPassword(password, cost)
}
