package task

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTask_Validate(t *testing.T) {
	tests := []struct {
		name    string
		task    Task
		wantErr bool
	}{
		{
			name:    "valid task",
			task:    Task{CategoryID: "avia", Title: "New request: Flights"},
			wantErr: false,
		},
		{
			name:    "explicit status",
			task:    Task{CategoryID: "avia", Title: "Flights", Status: StatusInProgress},
			wantErr: false,
		},
		{
			name:    "empty category",
			task:    Task{Title: "Flights"},
			wantErr: true,
		},
		{
			name:    "empty title",
			task:    Task{CategoryID: "avia", Title: "  "},
			wantErr: true,
		},
		{
			name:    "long title",
			task:    Task{CategoryID: "avia", Title: strings.Repeat("a", MaxTitleLen+1)},
			wantErr: true,
		},
		{
			name:    "unknown status",
			task:    Task{CategoryID: "avia", Title: "Flights", Status: "archived"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.task.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestFind(t *testing.T) {
	tasks := []Task{{ID: 1, Title: "a"}, {ID: 7, Title: "b"}}

	got, ok := Find(tasks, 7)
	assert.True(t, ok)
	assert.Equal(t, "b", got.Title)

	_, ok = Find(tasks, 3)
	assert.False(t, ok)
	_, ok = Find(nil, 1)
	assert.False(t, ok)
}

func TestTitleFor(t *testing.T) {
	assert.Equal(t, "New request: VIP lounge", TitleFor("VIP lounge"))
}

func TestPayload_Title(t *testing.T) {
	assert.Equal(t, "x", Payload{PayloadTitleKey: "x"}.Title())
	assert.Equal(t, "", Payload{PayloadTitleKey: 3}.Title())
	assert.Equal(t, "", Payload(nil).Title())
}
