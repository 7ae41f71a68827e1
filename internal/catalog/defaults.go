package catalog

const (
	policyCopilot   = `SOFTWARE\Policies\Microsoft\Windows\WindowsCopilot`
	policyWindowsAI = `SOFTWARE\Policies\Microsoft\Windows\WindowsAI`
	policySearch    = `SOFTWARE\Policies\Microsoft\Windows\Windows Search`
	policyEdge      = `SOFTWARE\Policies\Microsoft\Edge`
	policyInput     = `SOFTWARE\Policies\Microsoft\InputPersonalization`
	userSearch      = `SOFTWARE\Microsoft\Windows\CurrentVersion\Search`
)

// offWhenOne is a policy value where 1 disables the feature.
func offWhenOne(scope Scope, path, name string) RegistryToggle {
	return RegistryToggle{Scope: scope, Path: path, Name: name, EnabledValue: 0, DisabledValue: 1}
}

// offWhenZero is an "Allow..."/"...Enabled" value where 0 disables the feature.
func offWhenZero(scope Scope, path, name string) RegistryToggle {
	return RegistryToggle{Scope: scope, Path: path, Name: name, EnabledValue: 1, DisabledValue: 0}
}

var defaultFeatures = []Feature{
	{
		ID:          "copilot",
		Name:        "Microsoft Copilot",
		Description: "AI assistant built into Windows 11 with Bing Chat access",
		Toggles: []Toggle{
			offWhenOne(ScopeUser, policyCopilot, "TurnOffWindowsCopilot"),
			offWhenOne(ScopeMachine, policyCopilot, "TurnOffWindowsCopilot"),
		},
	},
	{
		ID:          "recall",
		Name:        "Windows Recall",
		Description: "Captures screen snapshots for AI search (Copilot+ PCs)",
		Toggles: []Toggle{
			offWhenOne(ScopeMachine, policyWindowsAI, "DisableAIDataAnalysis"),
			offWhenOne(ScopeUser, policyWindowsAI, "DisableRecall"),
		},
	},
	{
		ID:          "ai_explorer",
		Name:        "AI Explorer",
		Description: "AI exploration features in Windows",
		Toggles: []Toggle{
			offWhenOne(ScopeMachine, policyWindowsAI, "DisableAIExplorer"),
		},
	},
	{
		ID:          "bing_search",
		Name:        "Bing Search in Start Menu",
		Description: "Bing web search integration in the Start menu",
		Toggles: []Toggle{
			offWhenOne(ScopeUser, `SOFTWARE\Policies\Microsoft\Windows\Explorer`, "DisableSearchBoxSuggestions"),
		},
	},
	{
		ID:          "web_search",
		Name:        "Web Search in Taskbar",
		Description: "Web and AI suggestions in taskbar search",
		Toggles: []Toggle{
			offWhenOne(ScopeMachine, policySearch, "DisableWebSearch"),
			offWhenZero(ScopeUser, userSearch, "BingSearchEnabled"),
		},
	},
	{
		ID:          "windows_widgets",
		Name:        "Windows Widgets (AI News)",
		Description: "Desktop widgets with AI-personalized news",
		Toggles: []Toggle{
			offWhenZero(ScopeMachine, `SOFTWARE\Policies\Microsoft\Dsh`, "AllowNewsAndInterests"),
			offWhenZero(ScopeUser, `SOFTWARE\Microsoft\Windows\CurrentVersion\Explorer\Advanced`, "TaskbarDa"),
			PackageToggle{Identifier: "MicrosoftWindows.Client.WebExperience"},
		},
	},
	{
		ID:          "cortana",
		Name:        "Cortana (Legacy)",
		Description: "Legacy Cortana voice assistant",
		Toggles: []Toggle{
			offWhenZero(ScopeMachine, policySearch, "AllowCortana"),
			offWhenZero(ScopeUser, userSearch, "CortanaEnabled"),
			PackageToggle{Identifier: "Microsoft.549981C3F5F10"},
		},
	},
	{
		ID:          "edge_copilot_sidebar",
		Name:        "Edge Copilot Sidebar",
		Description: "Copilot sidebar in Microsoft Edge",
		Toggles: []Toggle{
			offWhenZero(ScopeMachine, policyEdge, "HubsSidebarEnabled"),
		},
	},
	{
		ID:          "ai_voice_typing",
		Name:        "AI Voice Typing",
		Description: "AI-enhanced voice dictation",
		Toggles: []Toggle{
			offWhenZero(ScopeMachine, policyInput, "AllowInputPersonalization"),
			offWhenOne(ScopeMachine, policyInput, "RestrictImplicitTextCollection"),
		},
	},
	{
		ID:          "suggested_actions",
		Name:        "Suggested Actions",
		Description: "AI suggested actions when copying text (dates, numbers)",
		Toggles: []Toggle{
			offWhenOne(ScopeUser, `SOFTWARE\Microsoft\Windows\CurrentVersion\SmartActionPlatform\SmartClipboard`, "Disabled"),
		},
	},
	{
		ID:          "edge_shopping",
		Name:        "Edge Shopping (AI)",
		Description: "Shopping assistant and price comparison in Edge",
		Toggles: []Toggle{
			offWhenZero(ScopeMachine, policyEdge, "ShoppingAssistantEnabled"),
		},
	},
	{
		ID:          "paint_cocreator",
		Name:        "Paint Cocreator",
		Description: "Image generation in Paint",
		Toggles: []Toggle{
			offWhenOne(ScopeMachine, `SOFTWARE\Policies\Microsoft\Windows\Paint`, "DontUseAI"),
		},
	},
	{
		ID:          "photos_ai",
		Name:        "Photos AI Features",
		Description: "AI search and editing in Photos",
		Toggles: []Toggle{
			offWhenOne(ScopeUser, `SOFTWARE\Microsoft\Windows\CurrentVersion\Photos`, "DisableAI"),
		},
	},
	{
		ID:          "clipchamp_ai",
		Name:        "Clipchamp AI",
		Description: "Video editor with AI features",
		Toggles: []Toggle{
			PackageToggle{Identifier: "Clipchamp.Clipchamp"},
		},
	},
	{
		ID:          "designer_ai",
		Name:        "Microsoft Designer",
		Description: "AI graphic design tool",
		Toggles: []Toggle{
			PackageToggle{Identifier: "Microsoft.Designer"},
		},
	},
}

// Default returns the built-in catalog. It panics if the built-in table is
// invalid, which catalog tests guard against.
func Default() *Catalog {
	c, err := New(defaultFeatures)
	if err != nil {
		panic("catalog: invalid built-in features: " + err.Error())
	}
	return c
}
