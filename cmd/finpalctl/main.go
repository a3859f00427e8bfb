// Command finpalctl manages FinPal data from the terminal: tax estimates,
// statement imports, summaries and exports against the SQLite store.
package main

func main() {
	Execute()
}
