// Package middleware provides HTTP middleware for the serve command.
package middleware
