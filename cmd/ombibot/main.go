// Command ombibot runs the Ombi media request bot.
package main

func main() {
	Execute()
}
