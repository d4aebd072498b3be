package conversation

// Reply texts. The <code> spans rely on the notifier sending HTML.
const (
	textConfused           = "I am confused."
	textConfusedCancelHint = "I am confused. Use /cancel to back out."
	textConfusedCancelOut  = "I am confused, use /cancel to back out"

	textLearnPrompt = "For your next message, send all the terms you would like this sticker to be searchable with"

	textForgetOne = "Forgetting this one!"

	textLearnSaved = "Success"

	textPackAllDone      = "All done! Send another sticker when ever you are ready."
	textPackEveryLearned = "Every sticker has been learned. To do something else send a new sticker!"
	textPackAlready      = "Every sticker has already been learned. If you would like to redo the pack, consider the /relearn_pack command after sending another sticker."
	textPackEmpty        = "For some reason no stickers were found in this pack. Backing out. Send a new sticker when ready."

	textNoPack = "This sticker is not part of a pack so this command will not work.\nUse /cancel to back out. Otherwise refer to the other commands above."

	textPackLoadFailed = "There was an error loading the sticker pack.\nUse /cancel to back out. Otherwise refer to the other commands above."

	textCancel = "Resetting for now."

	textStickerMenu = "What would you like to do with this sticker?\n" +
		"/learn_sticker for just this sticker\n" +
		"/learn_pack to learn unknown stickers from this pack\n" +
		"/relearn_pack to learn every sticker from this pack\n" +
		"/forget_sticker to remove this sticker from future results\n" +
		"/forget_pack remove every sticker in this sticker pack\n" +
		"/cancel to back out of this"

	textPresentSticker = "For your next message, send all the terms you would like this sticker to be searchable with!\n" +
		"If you want to skip this sticker and continue in the pack, use /skip\n" +
		"If you want to cancel out of this pack, use /cancel"
)
