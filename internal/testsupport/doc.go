// Package testsupport holds helpers shared by tests across packages.
package testsupport
