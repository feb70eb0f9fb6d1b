// showtracker serves the show tracking REST API.
package main

func main() {
	Execute()
}
