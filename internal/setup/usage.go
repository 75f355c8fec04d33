package setup

// Usage returns the instructional text printed at the end of setup. The
// four invocation forms are load-bearing and covered by tests; keep them
// exactly as written.
func Usage() string {
	return `
setup complete.

next steps:
  1. edit .env with your credentials and reservation preferences
  2. run one of:

  gymbook book --username <username> --password <password>
  gymbook book
  gymbook book --debug
  gymbook book --help

the second form reads credentials from .env or the environment.
`
}
