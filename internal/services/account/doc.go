// Package account handles the relay's login, salt and user-lookup replies
// and sends the matching requests.
package account
