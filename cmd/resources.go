package cmd

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/takutakahashi/trackerctl/pkg/output"
	"github.com/takutakahashi/trackerctl/pkg/tracker"
)

func newCommentsCmd(a *app) *cobra.Command {
	commentsCmd := &cobra.Command{
		Use:     "comments",
		Aliases: []string{"comment"},
		Short:   "Manage issue comments",
	}

	var listIssue int
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List the comments on an issue",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			comments, err := a.tracker.Comments.List(cmd.Context(), listIssue)
			if err != nil {
				return failed("list comments", err)
			}
			return a.print(cmd, comments, func() *output.Table { return commentTable(comments) })
		},
	}
	listCmd.Flags().IntVar(&listIssue, "issue", 0, "Issue ID")
	_ = listCmd.MarkFlagRequired("issue")
	commentsCmd.AddCommand(listCmd)

	var addIssue int
	addCmd := &cobra.Command{
		Use:   "add TEXT...",
		Short: "Comment on an issue",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			comment, err := a.tracker.Comments.Create(cmd.Context(), addIssue, strings.Join(args, " "))
			if err != nil {
				return failed("add comment", err)
			}
			return a.print(cmd, comment, func() *output.Table { return commentTable([]tracker.Comment{*comment}) })
		},
	}
	addCmd.Flags().IntVar(&addIssue, "issue", 0, "Issue ID")
	_ = addCmd.MarkFlagRequired("issue")
	commentsCmd.AddCommand(addCmd)

	commentsCmd.AddCommand(&cobra.Command{
		Use:   "delete ID",
		Short: "Delete a comment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("comment", args[0])
			if err != nil {
				return err
			}
			if err := a.tracker.Comments.Delete(cmd.Context(), id); err != nil {
				return failed("delete comment", err)
			}
			a.printf(cmd, "Deleted comment %d\n", id)
			return nil
		},
	})

	return commentsCmd
}

func newUsersCmd(a *app) *cobra.Command {
	usersCmd := &cobra.Command{
		Use:     "users",
		Aliases: []string{"user"},
		Short:   "Look up users",
	}

	usersCmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List users",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			users, err := a.tracker.Users.List(cmd.Context())
			if err != nil {
				return failed("list users", err)
			}
			return a.print(cmd, users, func() *output.Table { return userTable(users) })
		},
	})

	usersCmd.AddCommand(&cobra.Command{
		Use:   "get ID",
		Short: "Show a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("user", args[0])
			if err != nil {
				return err
			}
			user, err := a.tracker.Users.Get(cmd.Context(), id)
			if err != nil {
				return failed("get user", err)
			}
			return a.print(cmd, user, func() *output.Table { return userDetail(user) })
		},
	})

	return usersCmd
}

func newChatsCmd(a *app) *cobra.Command {
	chatsCmd := &cobra.Command{
		Use:     "chats",
		Aliases: []string{"chat", "rooms"},
		Short:   "Manage chat rooms",
	}

	chatsCmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List the chat rooms you belong to",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rooms, err := a.tracker.ChatRooms.List(cmd.Context())
			if err != nil {
				return failed("list chat rooms", err)
			}
			return a.print(cmd, rooms, func() *output.Table { return roomTable(rooms) })
		},
	})

	chatsCmd.AddCommand(&cobra.Command{
		Use:   "get ID",
		Short: "Show a chat room",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("chat room", args[0])
			if err != nil {
				return err
			}
			room, err := a.tracker.ChatRooms.Get(cmd.Context(), id)
			if err != nil {
				return failed("get chat room", err)
			}
			return a.print(cmd, room, func() *output.Table { return roomDetail(room) })
		},
	})

	var input tracker.ChatRoomInput
	var project int
	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create a chat room",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("project") {
				input.Project = &project
			}
			room, err := a.tracker.ChatRooms.Create(cmd.Context(), &input)
			if err != nil {
				return failed("create chat room", err)
			}
			return a.print(cmd, room, func() *output.Table { return roomDetail(room) })
		},
	}
	createCmd.Flags().StringVar(&input.Name, "name", "", "Room name")
	createCmd.Flags().StringVar(&input.RoomType, "type", tracker.RoomGroup, "Room type: direct, group or project")
	createCmd.Flags().IntVar(&project, "project", 0, "Project ID for project rooms")
	chatsCmd.AddCommand(createCmd)

	for _, action := range []struct {
		use, short, verb, done string
		run                    func(*cobra.Command, int) error
	}{
		{"join ID", "Join a chat room", "join chat room", "Joined chat room %d\n", func(cmd *cobra.Command, id int) error {
			return a.tracker.ChatRooms.Join(cmd.Context(), id)
		}},
		{"leave ID", "Leave a chat room", "leave chat room", "Left chat room %d\n", func(cmd *cobra.Command, id int) error {
			return a.tracker.ChatRooms.Leave(cmd.Context(), id)
		}},
		{"delete ID", "Delete a chat room", "delete chat room", "Deleted chat room %d\n", func(cmd *cobra.Command, id int) error {
			return a.tracker.ChatRooms.Delete(cmd.Context(), id)
		}},
	} {
		chatsCmd.AddCommand(idCommand(a, "chat room", action.use, action.short, action.verb, action.done, action.run))
	}

	return chatsCmd
}

func newMessagesCmd(a *app) *cobra.Command {
	messagesCmd := &cobra.Command{
		Use:     "messages",
		Aliases: []string{"message"},
		Short:   "Read and send chat messages",
	}

	var listRoom int
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List the messages in a room",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			messages, err := a.tracker.Messages.List(cmd.Context(), listRoom)
			if err != nil {
				return failed("list messages", err)
			}
			return a.print(cmd, messages, func() *output.Table { return messageTable(messages) })
		},
	}
	listCmd.Flags().IntVar(&listRoom, "room", 0, "Chat room ID")
	_ = listCmd.MarkFlagRequired("room")
	messagesCmd.AddCommand(listCmd)

	var sendRoom int
	sendCmd := &cobra.Command{
		Use:   "send TEXT...",
		Short: "Send a message to a room",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			message, err := a.tracker.Messages.Send(cmd.Context(), sendRoom, strings.Join(args, " "))
			if err != nil {
				return failed("send message", err)
			}
			return a.print(cmd, message, func() *output.Table { return messageTable([]tracker.Message{*message}) })
		},
	}
	sendCmd.Flags().IntVar(&sendRoom, "room", 0, "Chat room ID")
	_ = sendCmd.MarkFlagRequired("room")
	messagesCmd.AddCommand(sendCmd)

	messagesCmd.AddCommand(idCommand(a, "message", "read ID", "Mark a message as read", "mark message as read", "Marked message %d as read\n",
		func(cmd *cobra.Command, id int) error {
			return a.tracker.Messages.MarkRead(cmd.Context(), id)
		}))

	return messagesCmd
}

// idCommand builds a command that runs one action against a resource ID
func idCommand(a *app, kind, use, short, verb, done string, run func(*cobra.Command, int) error) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(kind, args[0])
			if err != nil {
				return err
			}
			if err := run(cmd, id); err != nil {
				return failed(verb, err)
			}
			a.printf(cmd, done, id)
			return nil
		},
	}
}
