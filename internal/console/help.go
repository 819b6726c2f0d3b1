package console

import (
	"fmt"
	"sort"
	"strings"
)

var helpTopics = map[string]string{
	VerbCreate: `Creates a new instance of a type, saves it and prints its id.
Usage: create <type> [<key>=<value> ...]
       <type>.create()`,
	VerbShow: `Prints the string form of an instance.
Usage: show <type> <id>
       <type>.show(<id>)`,
	VerbDestroy: `Deletes an instance and saves the change.
Usage: destroy <type> <id>
       <type>.destroy(<id>)`,
	VerbAll: `Prints every instance, or every instance of one type.
Usage: all [<type>]
       <type>.all()`,
	VerbUpdate: `Sets one attribute, or every entry of a mapping, and saves.
Usage: update <type> <id> <attribute> <value>
       update <type> <id> {<attribute>: <value>, ...}
       <type>.update(<id>, <attribute>, <value>)
       <type>.update(<id>, {<attribute>: <value>, ...})`,
	VerbCount: `Prints the number of instances of a type.
Usage: count <type>
       <type>.count()`,
	VerbQuit: `Quit command to exit the program.`,
	VerbEOF:  `Exits the program at end of input.`,
	VerbHelp: `Lists commands, or describes one.
Usage: help [<command>]`,
}

func (d *Dispatcher) help(topic string) {
	if topic == "" {
		names := make([]string, 0, len(helpTopics))
		for name := range helpTopics {
			names = append(names, name)
		}
		sort.Strings(names)

		header := "Documented commands (type help <topic>):"
		fmt.Fprintf(d.out, "\n%s\n%s\n%s\n\n", header, strings.Repeat("=", len(header)), strings.Join(names, "  "))
		return
	}

	text, ok := helpTopics[topic]
	if !ok {
		fmt.Fprintf(d.out, "*** No help on %s\n", topic)
		return
	}
	fmt.Fprintln(d.out, text)
}
