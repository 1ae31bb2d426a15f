package match

// RCON command templates. The \x02..\x10 bytes are chat color codes; they
// must reach the game server verbatim. Multi-command strings are split on
// ";" when enqueued.
const (
	cmdWelcome = "say \x10Hi! I'm OrangeBot.;say \x10Start a match with \x06!start map \x08map map"

	cmdKnifeStarting = "mp_unpause_match;mp_warmup_pausetimer 0;mp_warmuptime 5;mp_warmup_start; say \x10Both teams are \x06!ready\x10, starting knife round in:;say \x085..."
	cmdKnifeWon      = "mp_pause_match;mp_t_default_secondary \"weapon_glock\";mp_ct_default_secondary \"weapon_hkp2000\";mp_free_armor 0;mp_give_player_c4 1;say \x06%s \x10won the knife round!;say \x10Do you want to \x06!stay\x10 or \x06!swap\x10?"
	cmdKnifeStarted  = "say \x10Knife round started! GL HF!"
	cmdKnifeStay     = "mp_unpause_match"
	cmdKnifeSwap     = "mp_unpause_match;mp_swapteams"
	cmdKnifeDisabled = "say \x10Cancelled knife round."

	cmdPauseEnabled = "mp_pause_match;say \x10Pausing match on freeze time!"
	cmdPauseAlready = "say \x10A pause was already called."
	cmdMatchPaused  = "say \x10Match will resume when both teams are \x06!ready\x10."
	cmdPauseTime    = "say \x10Pause will automatically end in \x06%d seconds"
	cmdPauseTimeout = "say \x10Continuing in \x0620 seconds"
	cmdMatchUnpause = "mp_unpause_match;say \x10Both teams are \x06!ready\x10, resuming match!"

	cmdMatchStarting = "mp_unpause_match;mp_warmup_pausetimer 0;mp_warmuptime 0;mp_warmup_end;log on;say \x10Both teams are \x06!ready."
	cmdMatchLiveOn3  = "say \x02The Match will be live on the third restart."
	cmdMatchIsLive   = "say \x04Match is live!"
	cmdLive          = "say \x03LIVE!;say \x0eLIVE!;say \x02LIVE!"
	cmdTeamReady     = "say \x10%s are \x06!ready\x10, waiting for %s."
	cmdRoundStarted  = "mp_respawn_on_death_t 0;mp_respawn_on_death_ct 0"

	cmdWarmup        = "say \x10Match will start when both teams are \x06!ready\x10"
	cmdWarmupKnife   = "say \x10Knife round will start when both teams are \x06!ready\x10"
	cmdWarmupTime    = "say \x10or after a maximum of \x06%d\x10 seconds."
	cmdWarmupTimeout = "say \x10Starting round in \x0620\x10 seconds."

	cmdDemoRec         = "say \x10Started recording GOTV Demo: \x06%s"
	cmdDemoFinished    = "say \x10Finished recording GOTV Demo: \x06%s"
	cmdDemoRecEnabled  = "say \x10Enabled GOTV Demo recording."
	cmdDemoRecDisabled = "say \x10Disabled GOTV Demo recording."

	cmdOvertimeEnabled  = "say \x10Enabled Overtime."
	cmdOvertimeDisabled = "say \x10Disabled Overtime."
	cmdFullMapEnabled   = "say \x10Map will be fully played out."
	cmdFullMapDisabled  = "say \x10Map will not be played out."

	cmdSettings          = "say \x10Match Settings:"
	cmdSettingsKnife     = "say \x10Knife: \x06%t"
	cmdSettingsRecording = "say \x10GOTV Demo recording: \x06%t"
	cmdSettingsOvertime  = "say \x10Overtime: \x06%t"
	cmdSettingsFullMap   = "say \x10Full Map: \x06%t"
	cmdSettingsMaps      = "say \x10Maps: \x06%s"

	cmdMapFinished    = "say \x10Map finished! \x06GG"
	cmdMapChange      = "say \x10Changing map in 20 seconds to: \x06%s"
	cmdSeriesFinished = "say \x10Finished the series!"
	cmdChangeLevel    = "changelevel %s"

	cmdGotvOverlay  = "mp_teammatchstat_txt \"Match %d of %d\"; mp_teammatchstat_1 \"%d\"; mp_teammatchstat_2 \"%d\""
	cmdRestoreRound = "mp_backup_restore_load_file \"%s\";say \x10Round \x06%d\x10 has been restored, resuming match in:;say \x085..."

	cmdSay     = "say %s"
	cmdGoodbye = "say \x10Goodbye from OrangeBot;logaddress_delall; log off"
)
