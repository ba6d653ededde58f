// Command hashpw produces bcrypt hashes for the tubegate shared secret.
//
// Usage:
//
//	hashpw [command]
//
// Commands:
//
//	hash           Prompt for a password (twice on a terminal) and print its
//	               bcrypt hash. This is the default.
//
//	verify <hash>  Prompt for a password and report whether it matches hash.
//
// When standard input is not a terminal the password is read from the first
// line, so the tool can be scripted:
//
//	echo 'my secret' | hashpw
//
// Set the printed hash as ADMIN_PASSWORD_HASH so the plain password never
// has to be stored in the server's environment.
package main
