package command

// Message keys.
const (
	MsgDescription             = "Description"
	MsgInfo                    = "Info"
	MsgHelp                    = "Help"
	MsgNoPermission            = "NoPermission"
	MsgCodeAutoLocked          = "CodeAutoLocked"
	MsgCodeAutoLockedWithGuest = "CodeAutoLockedWithGuest"
	MsgCodeUpdated             = "CodeUpdated"
	MsgCodeUpdatedHidden       = "CodeUpdatedHidden"
	MsgGuestCodeUpdated        = "GuestCodeUpdated"
	MsgGuestCodeUpdatedHidden  = "GuestCodeUpdatedHidden"
	MsgCodeRemoved             = "CodeRemoved"
	MsgGuestCodeRemoved        = "GuestCodeRemoved"
	MsgInvalidCode             = "InvalidCode"
	MsgInvalidArgsTooMany      = "InvalidArgsTooMany"
	MsgNotSet                  = "NotSet"
	MsgSyntaxError             = "SyntaxError"
	MsgSpamPrevention          = "SpamPrevention"
	MsgInvalidArguments        = "InvalidArguments"
	MsgErrorNoPlayerFound      = "ErrorNoPlayerFound"
	MsgErrorMoreThanOnePlayer  = "ErrorMoreThanOnePlayerFound"
	MsgResettingAllLockOuts    = "ResettingAllLockOuts"
	MsgResettingLockOut        = "ResettingLockOut"
	MsgNoLockOutToReset        = "NoLockOutToReset"
	MsgQuietModeEnable         = "QuietModeEnable"
	MsgQuietModeDisable        = "QuietModeDisable"
	MsgQuietModeDetails        = "QuietModeDetails"
	MsgEnabled                 = "Enabled"
	MsgDisabled                = "Disabled"
	MsgLockedOutFor            = "LockedOutFor"
	MsgPickPrompt              = "PickPrompt"
	MsgHelpCoreCommands        = "HelpExtendedCoreCommands"
	MsgHelpOtherCommands       = "HelpExtendedOtherCommands"
	MsgHelpInfo                = "HelpExtendedInfo"
	MsgHelpSetCode             = "HelpExtendedSetCode"
	MsgHelpRandomCode          = "HelpExtendedRandomCode"
	MsgHelpRemoveCode          = "HelpExtendedRemoveCode"
	MsgHelpPickCode            = "HelpExtendedPickCode"
	MsgHelpCoreGuestCommands   = "HelpExtendedCoreGuestCommands"
	MsgHelpQuietMode           = "HelpExtendedQuietMode"
	MsgHelpHelp                = "HelpExtendedHelp"
	MsgRaidBlocked             = "RaidBlocked"
	MsgCombatBlocked           = "CombatBlocked"
)

// Catalog maps message keys to format strings.
type Catalog map[string]string

// English is the default catalog.
var English = Catalog{
	MsgDescription:             "Automatically set the code on code locks you place.",
	MsgInfo:                    "Code: %s\nGuest Code: %s\nQuiet Mode: %s",
	MsgHelp:                    "Usage:\n%s",
	MsgNoPermission:            "You don't have permission.",
	MsgCodeAutoLocked:          "Code lock %s placed with code %s.",
	MsgCodeAutoLockedWithGuest: "Code lock %s placed with code %s and guest code %s.",
	MsgCodeUpdated:             "Your auto-code has changed to %s.",
	MsgCodeUpdatedHidden:       "New auto-code set.",
	MsgGuestCodeUpdated:        "Your guest auto-code has changed to %s.",
	MsgGuestCodeUpdatedHidden:  "New guest auto-code set.",
	MsgCodeRemoved:             "Your auto-code has been removed.",
	MsgGuestCodeRemoved:        "Your guest auto-code has been removed.",
	MsgInvalidCode:             "Invalid code. A code is exactly 4 digits.",
	MsgInvalidArgsTooMany:      "Too many arguments supplied.",
	MsgNotSet:                  "Not set",
	MsgSyntaxError:             "Syntax Error: expected command in the form:\n%s",
	MsgSpamPrevention:          "Too many recent auto-code sets. Please wait %s and try again.",
	MsgInvalidArguments:        "Invalid arguments supplied.",
	MsgErrorNoPlayerFound:      "Error: No player found.",
	MsgErrorMoreThanOnePlayer:  "Error: More than one player found.",
	MsgResettingAllLockOuts:    "Resetting lock outs for all players (%d).",
	MsgResettingLockOut:        "Resetting lock outs for %s.",
	MsgNoLockOutToReset:        "%s has no auto-code settings.",
	MsgQuietModeEnable:         "Quiet mode now enabled.",
	MsgQuietModeDisable:        "Quiet mode now disabled.",
	MsgQuietModeDetails:        "Less messages will be shown and your auto-code will be hidden.",
	MsgEnabled:                 "Enabled",
	MsgDisabled:                "Disabled",
	MsgLockedOutFor:            "Locked Out: %s",
	MsgPickPrompt:              "Enter your new %s into lock %s within %s.",
	MsgHelpCoreCommands:        "Core Commands:",
	MsgHelpOtherCommands:       "Other Commands:",
	MsgHelpInfo:                "Show your settings:\n%s",
	MsgHelpSetCode:             "Set your auto-code to 1234:\n%s",
	MsgHelpRandomCode:          "Set your auto-code to a randomly generated code:\n%s",
	MsgHelpRemoveCode:          "Remove your set auto-code:\n%s",
	MsgHelpPickCode:            "Type your auto-code into a lock instead of the chat:\n%s",
	MsgHelpCoreGuestCommands:   "Each core command is also available in a guest code version. e.g.\n%s",
	MsgHelpQuietMode:           "Toggles on/off quiet mode:\n%s",
	MsgHelpHelp:                "Displays this help message:\n%s",
	MsgRaidBlocked:             "Auto-code disabled due to raid block.",
	MsgCombatBlocked:           "Auto-code disabled due to combat block.",
}
