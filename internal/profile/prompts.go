package profile

import (
	"fmt"

	"github.com/manifoldco/promptui"
)

// CollectInteractive asks for each profile key in turn. Answers default to
// the current values; a blank answer leaves the key out.
func CollectInteractive(current []Item) ([]Item, error) {
	fmt.Println("Describe the business so the agent can answer simple questions itself.")
	fmt.Println("Press Enter to keep the value shown.")
	fmt.Println()

	existing := make(map[string]string, len(current))
	for _, it := range current {
		existing[it.Key] = it.Value
	}

	var items []Item
	for _, key := range Keys {
		value, err := askOptional(key, existing[key])
		if err != nil {
			return nil, fmt.Errorf("%s prompt: %w", key, err)
		}
		if value != "" {
			items = append(items, Item{Key: key, Value: value})
		}
	}
	return items, nil
}

func askOptional(label, def string) (string, error) {
	p := promptui.Prompt{
		Label:     label,
		Default:   def,
		AllowEdit: true,
	}
	return p.Run()
}
